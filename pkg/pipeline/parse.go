package pipeline

import (
	stderrors "errors"
	"io"
	"io/fs"

	"github.com/matzehuels/layerviz/pkg/arch"
	netio "github.com/matzehuels/layerviz/pkg/io"
)

// Parse decodes a network document and validates it against maxNeurons
// (the default ceiling when <= 0).
func Parse(r io.Reader, maxNeurons int) (*netio.Network, error) {
	return netio.ReadJSON(r, netio.WithMaxNeurons(maxNeurons))
}

// Load reads the network file at path. A missing file yields the default
// network, so every command can start from an empty directory.
func Load(path string, maxNeurons int) (*netio.Network, error) {
	n, err := netio.ImportJSON(path, netio.WithMaxNeurons(maxNeurons))
	if err == nil {
		return n, nil
	}
	if stderrors.Is(err, fs.ErrNotExist) {
		a := arch.Default()
		a.SetMaxNeurons(maxNeurons)
		return &netio.Network{Arch: a, Shape: netio.ShapeSimple}, nil
	}
	return nil, err
}
