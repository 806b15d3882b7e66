package model

// ProvisionRequest is the caller-supplied request to stand up a tenant
// environment. All fields are mandatory. Name and AccountID form the
// environment name and the tenant's DNS label, so both are restricted to
// lowercase alphanumerics and inner hyphens.
type ProvisionRequest struct {
	InstanceID string `json:"instanceId" validate:"required"`
	AccountID  string `json:"accountId" validate:"required,dnslabel"`
	Name       string `json:"name" validate:"required,dnslabel"`
	Key        string `json:"key" validate:"required"`
	// JWT is the activation token from the inbound request header. It is
	// forwarded on the callback and never read from the body.
	JWT string `json:"-"`
}

// ProvisionedEnvironment is the working state threaded through one pipeline
// run. The generated secrets are excluded from every serialization so they
// cannot leak into logs, workflow history or callbacks.
type ProvisionedEnvironment struct {
	EnvironmentID   string `json:"environment_id"`
	EnvironmentName string `json:"environment_name"`
	ApplicationName string `json:"application_name"`
	VersionLabel    string `json:"version_label"`
	SolutionStack   string `json:"solution_stack"`

	DBPassword    string `json:"-"`
	SigningSecret string `json:"-"`
}

// LoadBalancerConfig identifies the balancer resources discovered (not
// created) once the environment's network resources exist.
type LoadBalancerConfig struct {
	BalancerArn      string `json:"balancer_arn"`
	TargetGroupArn   string `json:"target_group_arn"`
	HTTPListenerArn  string `json:"http_listener_arn"`
	HTTPSListenerArn string `json:"https_listener_arn,omitempty"`
}

// DomainBinding is the final artifact of a run: the tenant hostname and the
// canonical network name it aliases.
type DomainBinding struct {
	FQDN          string `json:"fqdn"`
	CanonicalName string `json:"canonical_name"`
}
