package constants

// SessionState represents a named state of the recurring milestone workflow
type SessionState int

// RecurrenceType represents the type of recurrence for a recurring template
type RecurrenceType string

// MonthlyPattern selects how a monthly recurrence picks its day
type MonthlyPattern string

// PhaseKind classifies a stored phase row
type PhaseKind string

// NotificationVariant is the presentation variant of a user notification
type NotificationVariant string

const (
	AppName             = "phaseplan"
	DefaultKeyringUser  = "database-connection"
	DefaultConfigPath   = "~/.config/phaseplan/phaseplan.db"
	DefaultSettingsPath = "~/.config/phaseplan/settings.yaml"
	ConnectionEnvVar    = "PHASEPLAN_DB_CONNECTION"
	Version             = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Recurrence constants
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"

	MonthlyPatternDate      MonthlyPattern = "date"
	MonthlyPatternDayOfWeek MonthlyPattern = "dayOfWeek"

	// Week-of-month selectors for the dayOfWeek monthly pattern. 1-4 are literal.
	WeekOfMonthSecondLast = 5
	WeekOfMonthLast       = 6

	// Generation limits
	DefaultBatchSize          = 20
	DefaultSeriesCap          = 500
	HardOccurrenceCeiling     = 1000
	DefaultContinuousCadence  = 26
	DefaultBoundedCap         = 100
	DefaultRunwayMonths       = 6
	DefaultNonContinuousLimit = 365

	// Split phase insertion
	ShortPhaseThresholdDays = 21
	ShortPhaseInsertDays    = 1
	LongPhaseInsertDays     = 6

	// Phase kinds
	PhaseKindSplit      PhaseKind = "split"
	PhaseKindMilestone  PhaseKind = "milestone"
	PhaseKindTemplate   PhaseKind = "template"
	PhaseKindOccurrence PhaseKind = "occurrence"

	// Desktop companion notifications
	NotifierLockfileName   = "phaseplan-notifier.lock"
	NotificationDurationMs = 5000
	CompanionAppIdentifier = "com.julianstephens.phaseplan"

	// Notification variants
	NotifyDefault     NotificationVariant = "default"
	NotifySuccess     NotificationVariant = "success"
	NotifyDestructive NotificationVariant = "destructive"
)

// Workflow states
const (
	StateIdle SessionState = iota
	StateConfiguringRecurrence
	StateConfirmingOverwrite
	StateEditingLoad
	StateSplitting
)
