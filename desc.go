package cmccl

// desc.go holds the serializable descriptions of an experiment: the
// topology to build, the fabric parameters, and the collective invocation.
// Serialization to json or to yaml is selected by file extension.

import (
	"encoding/json"
	"os"
	"path"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TopoDesc describes a topology to build
type TopoDesc struct {
	Kind     string `json:"kind" yaml:"kind"` // "star" or "fat-tree"
	NumHosts int    `json:"numhosts" yaml:"numhosts"`
	K        int    `json:"k" yaml:"k"`
}

// NetParamDesc describes the fabric timing parameters
type NetParamDesc struct {
	Latency float64 `json:"latency" yaml:"latency"`
	Bndwdth float64 `json:"bndwdth" yaml:"bndwdth"`
	Jitter  bool    `json:"jitter" yaml:"jitter"`
}

// ExpDesc describes one collective run end to end
type ExpDesc struct {
	Name      string       `json:"name" yaml:"name"`
	Topo      TopoDesc     `json:"topo" yaml:"topo"`
	Params    NetParamDesc `json:"params" yaml:"params"`
	Algorithm string       `json:"algorithm" yaml:"algorithm"`
	Workers   []string     `json:"workers" yaml:"workers"` // empty means every host
	DataSize  int          `json:"datasize" yaml:"datasize"`
}

// BuildTopo constructs the topology the description names
func (td *TopoDesc) BuildTopo() (*Topology, error) {
	switch td.Kind {
	case "star":
		return BuildStar(td.NumHosts)
	case "fat-tree":
		return BuildFatTree(td.K)
	}
	return nil, errors.Wrapf(ErrInvalidTopoParam, "unknown topology kind %s", td.Kind)
}

// NetParams converts the description into fabric parameters, filling in
// the default latency when none is given
func (npd *NetParamDesc) NetParams() NetParams {
	params := NetParams{Latency: npd.Latency, Bndwdth: npd.Bndwdth, Jitter: npd.Jitter}
	if params.Latency == 0.0 {
		params.Latency = DefaultLatency
	}
	return params
}

// WriteToFile stores the ExpDesc struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (ed *ExpDesc) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*ed)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*ed, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	err := f.Close()
	if err != nil {
		panic(err)
	}

	return nil
}

// ReadExpDesc deserializes a byte slice holding a representation of an ExpDesc struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadExpDesc(filename string, useYAML bool, dict []byte) (*ExpDesc, error) {
	var err error

	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := ExpDesc{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	return &example, nil
}
