package resources

import (
	"fmt"
	"time"
)

// SessionTagKey is the tag carried by every ephemeral resource. Its value is
// the owning session's run id, which is what the orphan sweep matches on.
const SessionTagKey = "fnprobe:session"

// LogicalNameTagKey records the logical name a resource was provisioned under.
const LogicalNameTagKey = "fnprobe:logical-name"

// Kind is the type of an ephemeral resource.
type Kind string

const (
	KindBucket Kind = "bucket"
	KindObject Kind = "object"
)

// Spec declares a resource to provision.
type Spec struct {
	// Name is the logical name, used in ${resource:<name>} placeholders.
	Name string
	Kind Kind
	// Bucket is the logical name of the bucket holding an object.
	Bucket  string
	Key     string
	Content string
}

// EphemeralResource is a cloud resource created for one session.
type EphemeralResource struct {
	Kind        Kind   `json:"kind"`
	ID          string `json:"id"`
	LogicalName string `json:"logicalName"`
	// Bucket is the physical bucket of an object resource.
	Bucket    string            `json:"bucket,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	Tags      map[string]string `json:"tags"`
}

// Orphan is a resource whose teardown failed. It is left for an out-of-band
// sweep keyed by session id.
type Orphan struct {
	Kind        Kind   `json:"kind"`
	ID          string `json:"id"`
	LogicalName string `json:"logicalName,omitempty"`
	SessionID   string `json:"sessionId"`
	Error       string `json:"error"`
}

// ProvisionError means a resource could not be created.
type ProvisionError struct {
	Spec string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("ProvisionError: %s: %v", e.Spec, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// TeardownError means a resource could not be deleted.
type TeardownError struct {
	Resource string
	Err      error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("TeardownError: %s: %v", e.Resource, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }
