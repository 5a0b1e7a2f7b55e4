package rules

// DirectiveKind enumerates the per-key decisions a rule can make.
type DirectiveKind int

const (
	// KindCopy takes the source value when one is available, keeping the
	// target line's formatting. This is the default for unmatched keys.
	KindCopy DirectiveKind = iota
	// KindIgnore keeps the target value untouched regardless of source.
	KindIgnore
	// KindPreserve behaves like KindIgnore for existing target lines and
	// additionally never lets the key be appended from the source.
	KindPreserve
	// KindDelete removes the entry (or, as a section rule, the whole
	// section) from the output.
	KindDelete
	// KindSet forces the key to a fixed value, creating the line (and the
	// section) if missing.
	KindSet
	// KindSecret resolves the value through the secret resolver.
	KindSecret
	// KindTransform delegates the decision to a Transformer.
	KindTransform
)

func (k DirectiveKind) String() string {
	switch k {
	case KindCopy:
		return "copy"
	case KindIgnore:
		return "ignore"
	case KindPreserve:
		return "preserve"
	case KindDelete:
		return "delete"
	case KindSet:
		return "set"
	case KindSecret:
		return "secret"
	case KindTransform:
		return "transform"
	default:
		return "unknown"
	}
}

// SecretPolicy controls what happens when secret resolution fails.
type SecretPolicy int

const (
	// SecretFatal aborts the whole merge on a resolver failure.
	SecretFatal SecretPolicy = iota
	// SecretKeepTarget keeps the existing target value and records a
	// warning instead of failing.
	SecretKeepTarget
)

// Directive is the rule-derived decision for one (section, key) pair.
type Directive struct {
	Kind DirectiveKind

	// Service and Account configure KindSecret. Account is a template in
	// which "{section}" and "{key}" are expanded before lookup.
	Service string
	Account string
	// OnError selects the failure policy for KindSecret.
	OnError SecretPolicy

	// Value is the forced value for KindSet.
	Value string

	// Transform is the transformer for KindTransform.
	Transform Transformer
}

// Copy returns the default pass-through directive.
func Copy() Directive {
	return Directive{Kind: KindCopy}
}

// Ignore returns a directive that keeps the target value.
func Ignore() Directive {
	return Directive{Kind: KindIgnore}
}

// Preserve returns a directive that keeps the target value and suppresses
// appending the key from the source when absent.
func Preserve() Directive {
	return Directive{Kind: KindPreserve}
}

// Delete returns a directive that removes the entry from the output.
func Delete() Directive {
	return Directive{Kind: KindDelete}
}

// Set returns a directive that forces the key to the given value.
func Set(value string) Directive {
	return Directive{Kind: KindSet, Value: value}
}

// Secret returns a directive that resolves the value through the secret
// resolver under the given service, with the account template expanded
// against the matched section and key.
func Secret(service, account string, onError SecretPolicy) Directive {
	return Directive{Kind: KindSecret, Service: service, Account: account, OnError: onError}
}

// Transform returns a directive that applies a custom transformer.
func Transform(t Transformer) Directive {
	return Directive{Kind: KindTransform, Transform: t}
}
