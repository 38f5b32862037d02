// Package transport builds the HTTP clients used to fetch pages.
//
// A Client can dial directly or through a SOCKS5 proxy, injects the
// per-site cookie and headers from the configuration file into every
// request, and caps redirect chains. For .onion seeds the package can
// also launch an embedded Tor daemon (via tornago) and validate v3
// onion addresses before a crawl starts.
//
// Create a Client once and pass it to the renderer; the package keeps
// no global state.
package transport
