/*
Package httpserver distributes the server's public certificate over HTTP.

OPC UA clients connecting to a server with a self-signed certificate must
trust it explicitly. The endpoints below let operators and provisioning
tooling fetch the certificate out of band instead of copying files around.

# Endpoints

	GET /api/public/certificate   PEM chain of the default identity
	GET /api/public/identity      JSON IdentitySummary
	GET /livez                    liveness
	GET /readyz                   readiness, 503 while draining
	GET /drain, /undrain          toggle readiness

Private keys are never served. Requests are logged through the flashbots
httplogger middleware.
*/
package httpserver
