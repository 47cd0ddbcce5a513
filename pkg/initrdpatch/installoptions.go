/*
Copyright © 2026 VMware, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package initrdpatch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmware/photon-mokboot/pkg/mokerror"
)

// InstallOption is one entry of installer/build_install_options_all.json.
type InstallOption struct {
	Title        string `json:"title"`
	Visible      bool   `json:"visible"`
	PackagesJSON string `json:"packages_json"`
}

// orderedOptions preserves the key order of build_install_options_all.json
// across a decode/re-encode round trip: encoding/json's map type doesn't,
// and the P7 property pins "mok" to the first key, so order survives
// as an explicit slice rather than implicitly through a map.
type orderedOptions struct {
	keys []string
	vals map[string]InstallOption
}

func decodeOrderedOptions(raw []byte) (*orderedOptions, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("build_install_options_all.json: expected object")
	}

	o := &orderedOptions{vals: map[string]InstallOption{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("build_install_options_all.json: non-string key")
		}
		var opt InstallOption
		if err := dec.Decode(&opt); err != nil {
			return nil, fmt.Errorf("build_install_options_all.json: entry %q: %w", key, err)
		}
		o.keys = append(o.keys, key)
		o.vals[key] = opt
	}
	return o, nil
}

// prepend inserts a new entry as the first key, per the spec'd "mok
// entry listed first" requirement.
func (o *orderedOptions) prepend(key string, opt InstallOption) {
	o.keys = append([]string{key}, o.keys...)
	o.vals[key] = opt
}

func (o *orderedOptions) firstKey() (string, bool) {
	if len(o.keys) == 0 {
		return "", false
	}
	return o.keys[0], true
}

func (o *orderedOptions) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(o.vals[key])
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valJSON)
	}
	buf.WriteByte('}')

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buf.Bytes(), "", "  "); err != nil {
		return nil, mokerror.New(mokerror.IsoWriteFailed, stage, "build_install_options_all.json", err)
	}
	return pretty.Bytes(), nil
}
