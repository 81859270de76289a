//go:build waveshare

package profile

// Selected is the variant chosen by the "waveshare" build tag.
const Selected = VariantWaveshareESP32S3ETH8DI8RO
