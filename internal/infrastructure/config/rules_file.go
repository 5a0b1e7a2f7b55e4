// Package config loads the rules file that drives a merge. The file is TOML
// with an ordered array of [[rule]] tables; declaration order is match
// order, so broader rules placed earlier shadow narrower ones placed later.
//
//	[[rule]]
//	section = "General"
//	key = "lastOpened"
//	action = "ignore"
//
//	[[rule]]
//	section = "Accounts"
//	key = ".*password"
//	regex = true
//	action = "secret"
//	service = "inimerge"
//	account = "{section}-{key}"
//	on-error = "keep-target"
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"inimerge.dev/cli/internal/core/rules"
)

// RulesFile is the decoded shape of a rules file.
type RulesFile struct {
	Rules []RuleConfig `toml:"rule"`
}

// RuleConfig is one [[rule]] table.
type RuleConfig struct {
	// Section is the section matcher; Key the optional key matcher. An
	// empty Key makes the rule apply to the whole section. With Regex set,
	// both are regular expressions that must match the entire name.
	Section string `toml:"section"`
	Key     string `toml:"key"`
	Regex   bool   `toml:"regex"`

	// Action is one of copy, ignore, preserve, delete, set, secret,
	// unsorted-list, kde-shortcut.
	Action string `toml:"action"`

	// Value is the forced value for action = "set".
	Value string `toml:"value"`

	// Service, Account and OnError configure action = "secret". OnError is
	// "fatal" (default) or "keep-target".
	Service string `toml:"service"`
	Account string `toml:"account"`
	OnError string `toml:"on-error"`

	// Separator configures action = "unsorted-list" (default ",").
	Separator string `toml:"separator"`
}

// Load reads and compiles a rules file.
func Load(path string) (*rules.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes and compiles rules from TOML data.
func Parse(data []byte) (*rules.RuleSet, error) {
	var file RulesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	builder := rules.NewBuilder()
	for i, rc := range file.Rules {
		directive, err := rc.directive()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		section := rc.matcher(rc.Section)
		if rc.Key == "" {
			builder.AddSection(section, directive)
		} else {
			builder.Add(section, rc.matcher(rc.Key), directive)
		}
	}
	return builder.Build()
}

func (rc RuleConfig) matcher(name string) rules.Matcher {
	if rc.Regex {
		return rules.Pattern(name)
	}
	return rules.Literal(name)
}

func (rc RuleConfig) directive() (rules.Directive, error) {
	switch rc.Action {
	case "", "copy":
		return rules.Copy(), nil
	case "ignore":
		return rules.Ignore(), nil
	case "preserve":
		return rules.Preserve(), nil
	case "delete":
		return rules.Delete(), nil
	case "set":
		return rules.Set(rc.Value), nil
	case "secret":
		if rc.Service == "" {
			return rules.Directive{}, fmt.Errorf("secret rule needs a service")
		}
		account := rc.Account
		if account == "" {
			account = "{section}-{key}"
		}
		policy := rules.SecretFatal
		switch rc.OnError {
		case "", "fatal":
		case "keep-target":
			policy = rules.SecretKeepTarget
		default:
			return rules.Directive{}, fmt.Errorf("unknown on-error policy %q", rc.OnError)
		}
		return rules.Secret(rc.Service, account, policy), nil
	case "unsorted-list":
		sep := rc.Separator
		if sep == "" {
			sep = ","
		}
		return rules.Transform(rules.UnsortedList{Separator: sep}), nil
	case "kde-shortcut":
		return rules.Transform(rules.KdeShortcut{}), nil
	default:
		return rules.Directive{}, fmt.Errorf("unknown action %q", rc.Action)
	}
}
