package platform

import "fmt"

// MaxEnvironmentNameLength is the compute platform's limit on environment
// names.
const MaxEnvironmentNameLength = 40

// EnvironmentName derives the compute environment name for a tenant.
// Example: acme-acct123
func EnvironmentName(tenantName, accountID string) string {
	return fmt.Sprintf("%s-%s", tenantName, accountID)
}

// TenantHostname builds the externally facing hostname for an environment.
// Example: acme-acct123.milkyweb.app
func TenantHostname(environmentName, baseDomain string) string {
	return fmt.Sprintf("%s.%s", environmentName, baseDomain)
}
