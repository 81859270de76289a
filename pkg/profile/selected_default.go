//go:build !waveshare

package profile

// Selected is the fallback variant used when no board tag is given.
const Selected = VariantDefaultESP32
