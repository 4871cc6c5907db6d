package dataset

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

const blobScheme = "az://"

// blobLocation is a parsed az://account/container/blob reference.
type blobLocation struct {
	Account   string
	Container string
	Blob      string
}

func (l blobLocation) serviceURL() string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/", l.Account)
}

func parseBlobLocation(path string) (blobLocation, error) {
	rest, ok := strings.CutPrefix(path, blobScheme)
	if !ok {
		return blobLocation{}, fmt.Errorf("dataset: %q is not an %s URL", path, blobScheme)
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return blobLocation{}, fmt.Errorf("dataset: %q must look like %saccount/container/blob", path, blobScheme)
	}
	return blobLocation{Account: parts[0], Container: parts[1], Blob: parts[2]}, nil
}

// openBlob streams a blob using the ambient Azure credential chain
// (environment, workload identity, managed identity, Azure CLI).
func openBlob(ctx context.Context, path string) (io.ReadCloser, error) {
	loc, err := parseBlobLocation(path)
	if err != nil {
		return nil, err
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("dataset: azure credential: %w", err)
	}
	client, err := azblob.NewClient(loc.serviceURL(), cred, nil)
	if err != nil {
		return nil, fmt.Errorf("dataset: azure blob client: %w", err)
	}
	resp, err := client.DownloadStream(ctx, loc.Container, loc.Blob, nil)
	if err != nil {
		return nil, fmt.Errorf("dataset: download %s: %w", path, err)
	}
	return resp.Body, nil
}
