package uploader

import (
	"strings"

	"github.com/straye-as/lighthouse-uploader/internal/config"
)

// DefaultFiles are uploaded, in this order, when no other list is configured
var DefaultFiles = config.DefaultUploadFiles

// Params holds the values supplied on the command line for one run
type Params struct {
	CustomerName   string
	SASToken       string
	SubscriptionID string
}

// NewParams builds the run parameters, decoding the SAS token.
// No other validation happens: empty values are passed through as given.
func NewParams(customerName, sasToken, subscriptionID string) Params {
	return Params{
		CustomerName:   customerName,
		SASToken:       DecodeSASToken(sasToken),
		SubscriptionID: subscriptionID,
	}
}

// DecodeSASToken replaces every "%3D" with "=". Other escapes are left intact,
// since the signature itself may legitimately carry sequences such as %2B.
func DecodeSASToken(raw string) string {
	return strings.ReplaceAll(raw, "%3D", "=")
}

// BlobName returns the path of a file inside the container
func BlobName(p Params, fileName string) string {
	return p.CustomerName + "/" + p.SubscriptionID + "/" + fileName
}

// BlobURL returns the full destination URL of a file
func BlobURL(serviceURL, container string, p Params, fileName string) string {
	return strings.TrimSuffix(serviceURL, "/") + "/" + container + "/" + BlobName(p, fileName)
}
