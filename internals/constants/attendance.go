package constants

// Realtime event names published after a committed mutation.
const (
	EventStudentChanged = "student.changed"
	EventSessionChanged = "session.changed"
	EventRecordsChanged = "records.changed"
)

// Postgres NOTIFY channel used to fan events out across instances.
const RealtimeChannel = "hozur_events"

// Paging defaults shared by list endpoints.
const (
	DefaultPerPage = 20
	MaxPerPage     = 200
)
