package pgstore_test

import (
	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/storage/pgstore"
)

// The store backs both the engine's credential store and audit queries.
var (
	_ sessionauth.UserStore = (*pgstore.Store)(nil)
	_ audit.Sink            = (*pgstore.Store)(nil)
	_ audit.Reader          = (*pgstore.Store)(nil)
)
