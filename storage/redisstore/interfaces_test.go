package redisstore_test

import (
	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/storage/redisstore"
)

// The store backs both the engine's credential store and audit queries.
var (
	_ sessionauth.UserStore = (*redisstore.Store)(nil)
	_ audit.Sink            = (*redisstore.Store)(nil)
	_ audit.Reader          = (*redisstore.Store)(nil)
)
