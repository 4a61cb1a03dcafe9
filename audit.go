package sessionauth

import (
	"io"

	"github.com/MrEthical07/sessionauth/internal/audit"
)

// Audit types are re-exported so callers outside this module can provide
// and query sinks without importing an internal package.
type (
	AuditEntry       = audit.Entry
	AuditAction      = audit.Action
	AuditStatus      = audit.Status
	AuditFilter      = audit.Filter
	AuditPage        = audit.Page
	AuditActionCount = audit.ActionCount
	AuditSink        = audit.Sink
	AuditReader      = audit.Reader
)

const (
	AuditUserRegistered       = audit.ActionUserRegistered
	AuditLoginSuccess         = audit.ActionLoginSuccess
	AuditLoginFailed          = audit.ActionLoginFailed
	AuditLogout               = audit.ActionLogout
	AuditTokenRefreshed       = audit.ActionTokenRefreshed
	AuditProfileViewed        = audit.ActionProfileViewed
	AuditProfileUpdated       = audit.ActionProfileUpdated
	AuditAdminViewedUsers     = audit.ActionAdminViewedUsers
	AuditAdminViewedUser      = audit.ActionAdminViewedUser
	AuditPasswordChanged      = audit.ActionPasswordChanged
	AuditUnauthorizedAccess   = audit.ActionUnauthorizedAccess
	AuditAccountLocked        = audit.ActionAccountLocked
	AuditAccountUnlocked      = audit.ActionAccountUnlocked
	AuditAdminViewedAuditLogs = audit.ActionAdminViewedAuditLogs
)

// NewMemoryAuditSink returns an in-process sink that also answers queries.
func NewMemoryAuditSink() *audit.MemorySink { return audit.NewMemorySink() }

// NewJSONAuditSink writes one JSON object per entry to w.
func NewJSONAuditSink(w io.Writer) *audit.JSONWriterSink { return audit.NewJSONWriterSink(w) }

// NewChannelAuditSink buffers entries in a channel; mostly useful in tests.
func NewChannelAuditSink(buffer int) *audit.ChannelSink { return audit.NewChannelSink(buffer) }

// MultiAuditSink fans entries out to every sink. The first sink that
// implements AuditReader answers queries.
func MultiAuditSink(sinks ...AuditSink) AuditSink { return audit.MultiSink(sinks) }
