// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/rkai/internal/util"
)

// DefaultImageName is the file name used when saving a generated image.
const DefaultImageName = "rk-ai-image.png"

// ErrNotDataURI is returned for image references that are not base64 data URIs.
var ErrNotDataURI = errors.New("not a base64 data URI")

// DecodeDataURI splits "data:<mime>;base64,<payload>" into its MIME type
// and decoded bytes.
func DecodeDataURI(uri string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	mime, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode image data: %w", err)
	}
	return mime, data, nil
}

// SaveImage decodes an image turn's data URI and writes it to path.
// An empty path saves to DefaultImageName in the current directory.
func SaveImage(uri, path string) (string, error) {
	_, data, err := DecodeDataURI(uri)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = DefaultImageName
	}
	path = util.ExpandHome(path)
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return path, nil
}
