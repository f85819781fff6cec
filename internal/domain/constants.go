package domain

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Context-engine limit constants
const (
	// MaxCorrections caps the per-user correction list; the oldest pair is
	// dropped on overflow.
	MaxCorrections = 100
	// TypeBufferSize caps the per-user buffer of recent intent types used
	// for repetition detection.
	TypeBufferSize = 50
	// PatternWindow is how many recent buffer entries repetition detection
	// inspects.
	PatternWindow = 20
	// MinBufferForDetection is the buffer size below which repetition
	// detection returns nothing.
	MinBufferForDetection = 6
	// RepeatThreshold is the occurrence count a sequence needs to count as
	// a repetitive pattern.
	RepeatThreshold = 3
	// RecentIntentWindow is how many trailing history records feed the
	// post-classification confidence boost.
	RecentIntentWindow = 3
	// RecentFailureWindow is how many trailing history records are scanned
	// for the alternative suggestion.
	RecentFailureWindow = 5
	// MaxReferencedOutputLen bounds command output synthesized into a
	// referenced_output entity.
	MaxReferencedOutputLen = 200
)

// Preference store keys
const (
	// PrefKeyCorrections is the fixed key the correction list is persisted
	// under.
	PrefKeyCorrections = "command_corrections"
)
