package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleSet_DefaultIsCopy(t *testing.T) {
	set, err := NewBuilder().Build()
	require.NoError(t, err)

	assert.Equal(t, KindCopy, set.Match("any", "key").Kind, "Unmatched pairs should default to copy")
	assert.Equal(t, KindCopy, set.MatchSection("any").Kind)
}

func TestRuleSet_FirstMatchWins(t *testing.T) {
	set, err := NewBuilder().
		Add(Pattern(".*"), Pattern(".*"), Ignore()).
		Add(Literal("General"), Literal("theme"), Delete()).
		Build()
	require.NoError(t, err)

	got := set.Match("General", "theme")
	assert.Equal(t, KindIgnore, got.Kind,
		"The earlier, broader rule should shadow the later, more specific one")
}

func TestRuleSet_Matchers(t *testing.T) {
	set, err := NewBuilder().
		Add(Literal("s1"), Literal("exact"), Ignore()).
		Add(Literal("s1"), Pattern(`.*_ign`), Preserve()).
		Add(Pattern(`net.*`), Literal("token"), Delete()).
		Build()
	require.NoError(t, err)

	tests := []struct {
		name    string
		section string
		key     string
		want    DirectiveKind
	}{
		{"LiteralHit", "s1", "exact", KindIgnore},
		{"LiteralMissOnSubstring", "s1", "exactly", KindCopy},
		{"PatternHit", "s1", "window_ign", KindPreserve},
		{"PatternIsAnchored", "s1", "window_ignored", KindCopy},
		{"SectionPatternHit", "network", "token", KindDelete},
		{"SectionPatternMiss", "subnet", "token", KindCopy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, set.Match(tt.section, tt.key).Kind)
		})
	}
}

func TestRuleSet_SectionRules(t *testing.T) {
	set, err := NewBuilder().
		Add(Literal("cache"), Literal("version"), Copy()).
		AddSection(Literal("cache"), Ignore()).
		Build()
	require.NoError(t, err)

	assert.Equal(t, KindIgnore, set.MatchSection("cache").Kind)
	assert.Equal(t, KindCopy, set.Match("cache", "version").Kind,
		"An earlier key rule should override the section rule for its key")
	assert.Equal(t, KindIgnore, set.Match("cache", "anything").Kind,
		"Other keys should fall through to the section rule")
}

func TestBuilder_PatternError(t *testing.T) {
	_, err := NewBuilder().
		Add(Literal("s"), Pattern(`[unclosed`), Ignore()).
		Build()
	require.Error(t, err, "Should reject invalid pattern")

	var patternErr *PatternError
	require.ErrorAs(t, err, &patternErr)
	assert.Equal(t, "[unclosed", patternErr.Expr)
}

func TestBuilder_SetRequiresLiterals(t *testing.T) {
	_, err := NewBuilder().
		Add(Pattern(".*"), Literal("key"), Set("v")).
		Build()
	assert.Error(t, err, "Set rules with pattern matchers cannot name the key to force")

	_, err = NewBuilder().
		AddSection(Literal("s"), Set("v")).
		Build()
	assert.Error(t, err, "Section-wide set rules have no key to force")
}

func TestRuleSet_ForcedKeys(t *testing.T) {
	set, err := NewBuilder().
		Add(Literal("auth"), Literal("user"), Set("admin")).
		Add(Literal("auth"), Literal("mode"), Set("strict")).
		Add(Literal("other"), Literal("x"), Set("1")).
		Build()
	require.NoError(t, err)

	forced := set.ForcedKeys("auth")
	require.Len(t, forced, 2)
	assert.Equal(t, ForcedKey{Section: "auth", Key: "user", Value: "admin"}, forced[0])
	assert.Equal(t, ForcedKey{Section: "auth", Key: "mode", Value: "strict"}, forced[1])

	assert.Equal(t, []string{"auth", "other"}, set.ForcedSections())
	assert.Empty(t, set.ForcedKeys("missing"))
}
