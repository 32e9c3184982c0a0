package model

// Audit action constants
const (
	AuditActionConfigSaved    = "CONFIG_SAVED"
	AuditActionConfigRollback = "CONFIG_ROLLBACK"
	AuditActionDigestRun      = "DIGEST_RUN"
)
