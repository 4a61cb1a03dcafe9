// Package httpapi serves the engine over HTTP/JSON.
//
// Every response uses the envelope {success, message, data, errors}.
// Tokens travel in HttpOnly cookies; the access token is also accepted as
// a bearer header. Error mapping to status codes lives in statusFor.
package httpapi
