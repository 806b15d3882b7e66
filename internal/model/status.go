package model

// ProvisioningStatus is the stage boundary a deploy pipeline run has reached.
// It is reported to logs and metrics only; nothing persists it.
type ProvisioningStatus string

const (
	StatusPending        ProvisioningStatus = "pending"
	StatusResourcesReady ProvisioningStatus = "resources_ready"
	StatusConfigured     ProvisioningStatus = "configured"
	StatusDomainBound    ProvisioningStatus = "domain_bound"
	StatusCompleted      ProvisioningStatus = "completed"
	StatusFailed         ProvisioningStatus = "failed"
)

// Terminal reports whether no further transitions follow this status.
func (s ProvisioningStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
