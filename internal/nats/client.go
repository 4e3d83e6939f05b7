package nats

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/stone-age-io/hostaudit/internal/config"
	"go.uber.org/zap"
)

// Publisher delivers rendered reports over NATS, either with core publish
// or through JetStream when the config asks for persistence
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
	config *config.NATSConfig
}

// NewPublisher connects to NATS with the specified configuration
func NewPublisher(cfg *config.NATSConfig, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("hostaudit"),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", zap.Error(err))
		}),
	}

	authOpts, err := authOptions(&cfg.Auth, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, authOpts...)

	// Configure TLS if enabled
	if cfg.TLS.Enabled {
		tlsConfig, err := createTLSConfig(&cfg.TLS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))

		if cfg.TLS.InsecureSkipVerify {
			logger.Warn("TLS certificate verification is DISABLED - this is insecure and should only be used in development")
		}
	}

	// Pass all URLs for automatic failover
	serverURLs := strings.Join(cfg.URLs, ",")
	logger.Debug("Connecting to NATS", zap.Strings("urls", cfg.URLs))
	conn, err := nats.Connect(serverURLs, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS",
		zap.String("url", conn.ConnectedUrl()),
		zap.Bool("tls", conn.TLSRequired()),
		zap.Bool("jetstream", cfg.JetStream))

	p := &Publisher{
		conn:   conn,
		logger: logger,
		config: cfg,
	}

	if cfg.JetStream {
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		// Fail here rather than on the publish with a timeout
		if _, err := js.AccountInfo(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("JetStream not available on NATS server (is JetStream enabled?): %w", err)
		}
		p.js = js
	}

	return p, nil
}

// authOptions maps the configured auth type to connect options
func authOptions(cfg *config.AuthConfig, logger *zap.Logger) ([]nats.Option, error) {
	switch cfg.Type {
	case "creds":
		logger.Debug("Using credentials file authentication", zap.String("file", cfg.CredsFile))
		return []nats.Option{nats.UserCredentials(cfg.CredsFile)}, nil
	case "token":
		logger.Debug("Using token authentication")
		return []nats.Option{nats.Token(cfg.Token)}, nil
	case "userpass":
		logger.Debug("Using username/password authentication", zap.String("username", cfg.Username))
		return []nats.Option{nats.UserInfo(cfg.Username, cfg.Password)}, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid auth type: %s", cfg.Type)
	}
}

// createTLSConfig creates a TLS configuration based on the provided settings
func createTLSConfig(cfg *config.TLSConfig, logger *zap.Logger) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	// CA used to verify the server certificate
	if cfg.CAFile != "" {
		logger.Debug("Loading CA certificate", zap.String("file", cfg.CAFile))

		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	// Client certificate for mutual TLS
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		logger.Debug("Loading client certificate",
			zap.String("cert", cfg.CertFile),
			zap.String("key", cfg.KeyFile))

		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// PublishReport sends data to the report subject for hostname and waits
// until the server has it: a flush for core NATS, an ack for JetStream
func (p *Publisher) PublishReport(ctx context.Context, hostname string, data []byte) error {
	subject := ReportSubject(p.config.SubjectPrefix, hostname)

	// FlushWithContext needs a deadline
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if p.js != nil {
		ack, err := p.js.Publish(subject, data, nats.Context(ctx))
		if err != nil {
			return fmt.Errorf("failed to publish to %s: %w", subject, err)
		}
		p.logger.Info("Published report",
			zap.String("subject", subject),
			zap.String("stream", ack.Stream),
			zap.Uint64("sequence", ack.Sequence),
			zap.Int("bytes", len(data)))
		return nil
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush publish to %s: %w", subject, err)
	}

	p.logger.Info("Published report",
		zap.String("subject", subject),
		zap.Int("bytes", len(data)))
	return nil
}

// Close immediately closes the NATS connection
func (p *Publisher) Close() {
	p.conn.Close()
}

var subjectUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// ReportSubject builds <prefix>.<host>.report. The hostname becomes a single
// subject token: dots, spaces and wildcards are replaced with underscores.
func ReportSubject(prefix, hostname string) string {
	token := subjectUnsafe.ReplaceAllString(strings.TrimSpace(hostname), "_")
	if token == "" {
		token = "unknown"
	}
	return fmt.Sprintf("%s.%s.report", prefix, token)
}
