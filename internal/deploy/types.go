// Package deploy implements deploy-time validation and deployment history
// for the manifest and its functions directory.
package deploy

import (
	"time"

	"github.com/watzon/waypost/internal/manifest"
)

// Status represents the state of a deployment record.
type Status string

const (
	// StatusActive indicates the deployment is the current one.
	StatusActive Status = "active"
	// StatusRolledBack indicates the deployment was superseded by a rollback.
	StatusRolledBack Status = "rolled_back"
	// StatusFailed indicates the deployment never became active.
	StatusFailed Status = "failed"
)

// Deployment is an immutable record of a deployed manifest. It is created
// once at deploy time and replaced wholesale on redeploy.
type Deployment struct {
	ID                string    `json:"id"`
	Version           string    `json:"version"`
	ManifestHash      string    `json:"manifest_hash"`
	FunctionsHash     string    `json:"functions_hash"`
	ManifestSnapshot  string    `json:"manifest_snapshot"`
	FunctionsSnapshot string    `json:"functions_snapshot,omitempty"`
	DeployedAt        time.Time `json:"deployed_at"`
	Status            Status    `json:"status"`
	RollbackTo        string    `json:"rollback_to,omitempty"`
	Description       string    `json:"description,omitempty"`
}

// FunctionInfo is the per-function metadata captured in a bundle.
type FunctionInfo struct {
	Name    string `json:"name"`
	Runtime string `json:"runtime"`
	Hash    string `json:"hash"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
}

// Bundle is a hashed snapshot of the manifest and its functions.
type Bundle struct {
	Manifest      *manifest.Manifest `json:"manifest"`
	ManifestRaw   string             `json:"manifest_raw"`
	ManifestHash  string             `json:"manifest_hash"`
	Functions     []*FunctionInfo    `json:"functions"`
	FunctionsHash string             `json:"functions_hash"`
}

// FunctionChangeType classifies a function change between two bundles.
type FunctionChangeType string

const (
	// FunctionAdd indicates a new function was added.
	FunctionAdd FunctionChangeType = "add"
	// FunctionRemove indicates a function was removed.
	FunctionRemove FunctionChangeType = "remove"
	// FunctionModify indicates a function's code changed.
	FunctionModify FunctionChangeType = "modify"
)

// FunctionChange describes one function difference between deployments.
type FunctionChange struct {
	Type    FunctionChangeType `json:"type"`
	Name    string             `json:"name"`
	Runtime string             `json:"runtime,omitempty"`
	OldHash string             `json:"old_hash,omitempty"`
	NewHash string             `json:"new_hash,omitempty"`
	Safe    bool               `json:"safe"`
	Reason  string             `json:"reason,omitempty"`
}

// Report is the result of deploy-time validation.
type Report struct {
	// Valid is true when no errors were found.
	Valid bool `json:"valid"`
	// Errors block a deployment.
	Errors []string `json:"errors,omitempty"`
	// Warnings do not block a deployment.
	Warnings []string `json:"warnings,omitempty"`
	// Rules is the number of redirect rules checked.
	Rules int `json:"rules"`
	// Functions is the number of functions discovered.
	Functions int `json:"functions"`
}
