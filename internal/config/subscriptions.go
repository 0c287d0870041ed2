package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/iop-apl-uw/glidermon/internal/errs"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// SubscriptionLayers names the three file paths of §4.4, in increasing
// priority. All three are optional; a missing file contributes an empty
// mapping rather than an error.
type SubscriptionLayers struct {
	Basestation string // e.g. /etc/glidermon/subscriptions.yml
	Group       string // e.g. <mission-dir>/../group.subscriptions.yml
	Mission     string // e.g. <mission-dir>/subscriptions.yml
}

// LoadOptions controls merge behavior. AllowOverride is true for the
// normal mission flow (a higher-priority layer always wins); an operator
// can set it false to pin the basestation-wide layer and turn a
// group/mission conflict into a load error instead of a silent override.
type LoadOptions struct {
	AllowOverride bool
}

// DefaultLoadOptions is the normal mission flow's merge policy.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{AllowOverride: true}
}

// LoadSubscriptions reads up to three layered YAML documents, deep-merges
// them with list concatenation (§4.4), canonicalizes the result, and
// returns the merged SubscriptionTable plus any canonicalization warnings.
// A read or parse failure on any layer is reported wrapping
// errs.ErrConfigLoad; per §7 the caller abandons the triggering event and
// tries again fresh next time, it does not retry internally here.
func LoadSubscriptions(layers SubscriptionLayers, opts LoadOptions) (*subscribe.SubscriptionTable, []string, error) {
	base, err := readLayer(layers.Basestation)
	if err != nil {
		return nil, nil, err
	}
	group, err := readLayer(layers.Group)
	if err != nil {
		return nil, nil, err
	}
	mission, err := readLayer(layers.Mission)
	if err != nil {
		return nil, nil, err
	}

	merged, err := deepMerge(base, group, opts.AllowOverride)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: merging basestation and group layers: %v", errs.ErrConfigLoad, err)
	}
	merged, err = deepMerge(merged, mission, opts.AllowOverride)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: merging mission layer: %v", errs.ErrConfigLoad, err)
	}

	merged, sanitizeWarnings := subscribe.SanitizeRawUsers(merged)

	table, err := decodeTable(merged)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: decoding merged document: %v", errs.ErrConfigLoad, err)
	}

	subscribe.AssignKinds(table)
	canonWarnings := subscribe.Canonicalize(table)

	return table, append(sanitizeWarnings, canonWarnings...), nil
}

// readLayer reads one YAML file into a raw tree; a missing file yields an
// empty mapping, not an error, per §4.4 ("all three are optional").
func readLayer(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrConfigLoad, path, err)
	}

	var tree map[string]any
	if err := yamlv3.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", errs.ErrConfigLoad, path, err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}

// decodeTable re-serializes the merged raw tree to YAML and feeds it
// through koanf's rawbytes provider and YAML parser, then unmarshals into
// a typed SubscriptionTable with WeaklyTypedInput enabled — this is what
// implements "single-endpoint dicts are lifted to single-element lists"
// (§4.4): mapstructure's weak-typing mode coerces a bare mapping into a
// one-element slice wherever the target field is a slice, so the YAML
// author never has to write out `[...]` for a user with just one email
// endpoint.
func decodeTable(merged map[string]any) (*subscribe.SubscriptionTable, error) {
	yamlBytes, err := yamlv3.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("re-marshal merged document: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(yamlBytes), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load merged document into koanf: %w", err)
	}

	table := &subscribe.SubscriptionTable{}
	decoderConfig := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           table,
		TagName:          "koanf",
	}
	if err := k.UnmarshalWithConf("", table, koanf.UnmarshalConf{Tag: "koanf", DecoderConfig: decoderConfig}); err != nil {
		return nil, fmt.Errorf("unmarshal subscription table: %w", err)
	}
	return table, nil
}
