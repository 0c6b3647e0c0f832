package metadata

import "strings"

// PlaceholderImage is shown when a token has no image.
const PlaceholderImage = "/placeholder.png"

// NormalizeImageURL rewrites ipfs:// and ar:// links to HTTP gateways.
func NormalizeImageURL(url string) string {
	switch {
	case url == "":
		return PlaceholderImage
	case strings.HasPrefix(url, "ipfs://"):
		return "https://ipfs.io/ipfs/" + strings.TrimPrefix(url, "ipfs://")
	case strings.HasPrefix(url, "ar://"):
		return "https://arweave.net/" + strings.TrimPrefix(url, "ar://")
	default:
		return url
	}
}
