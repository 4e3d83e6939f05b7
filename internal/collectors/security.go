package collectors

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

func (c *Collector) collectSecurity(ctx context.Context) SecurityFindings {
	accounts := c.checkSuspiciousAccounts(ctx)
	c.record(ProbeAccounts, accounts.Degraded, accounts.Err)

	policy := c.checkPasswordPolicy(ctx)
	c.record(ProbePasswordPolicy, policy.Degraded, policy.Err)

	return SecurityFindings{
		SuspiciousAccountPresent: accounts.Value,
		PasswordPolicyVisible:    policy.Value,
	}
}

func (c *Collector) checkSuspiciousAccounts(ctx context.Context) Outcome[bool] {
	users, err := c.platform.Users(ctx)
	if err != nil {
		c.logger.Warn("Failed to list user accounts", zap.Error(err))
		return degraded(false, err)
	}
	return succeeded(hasSuspiciousAccount(users, c.opts.SuspiciousAccounts))
}

// hasSuspiciousAccount compares lower-cased user names with the deny list
func hasSuspiciousAccount(users []host.UserStat, denyList []string) bool {
	deny := make(map[string]bool, len(denyList))
	for _, name := range denyList {
		deny[strings.ToLower(name)] = true
	}
	for _, u := range users {
		if deny[strings.ToLower(u.User)] {
			return true
		}
	}
	return false
}

// checkPasswordPolicy needs the whole output for phrase matching, so it
// uses the adapter's strict Text call instead of Lines
func (c *Collector) checkPasswordPolicy(ctx context.Context) Outcome[PolicyStatus] {
	text, err := c.tools.Text(ctx, c.opts.AccountPolicy)
	if err != nil {
		return degraded(PolicyUnavailable, err)
	}
	return succeeded(policyStatus(text, c.opts.PasswordPolicyMarkers))
}

// policyStatus is PolicyVisible only when every marker appears in text
func policyStatus(text string, markers []string) PolicyStatus {
	for _, m := range markers {
		if !strings.Contains(text, m) {
			return PolicyAbsent
		}
	}
	return PolicyVisible
}
