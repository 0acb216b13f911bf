// Package clientip extracts real client IP addresses from HTTP requests.
//
// # Header Priority
//
// Headers are checked in this order:
//  1. CF-Connecting-IP (Cloudflare)
//  2. DO-Connecting-IP (DigitalOcean)
//  3. X-Forwarded-For (leftmost address)
//  4. X-Real-IP (nginx and other proxies)
//  5. RemoteAddr (direct connection)
//
// Every candidate is parsed and normalized; invalid values and 0.0.0.0 are
// skipped. When nothing valid is found GetIP returns the raw RemoteAddr.
//
// # Usage
//
//	ip := clientip.GetIP(r)
//
// Only trust these headers when a proxy you control sets them; a direct
// client can send any value.
package clientip
