package archive

import "errors"

var errNoCompressor = errors.New("no compressor configured")
