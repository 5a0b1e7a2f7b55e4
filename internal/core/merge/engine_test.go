package merge

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"inimerge.dev/cli/internal/core/document"
	"inimerge.dev/cli/internal/core/rules"
	"inimerge.dev/cli/internal/core/secrets"
)

func mustMerge(t *testing.T, target, source string, set *rules.RuleSet, opts Options) *Result {
	t.Helper()
	tgt, err := document.Parse(target)
	require.NoError(t, err, "Target should parse")
	src, err := document.Parse(source)
	require.NoError(t, err, "Source should parse")
	res, err := Merge(tgt, document.BuildSourceIndex(src), set, opts)
	require.NoError(t, err)
	return res
}

func emptyRules(t *testing.T) *rules.RuleSet {
	t.Helper()
	set, err := rules.NewBuilder().Build()
	require.NoError(t, err)
	return set
}

func TestMerge_SourceValueWinsByDefault(t *testing.T) {
	set, err := rules.NewBuilder().
		Add(rules.Literal("General"), rules.Literal("lastOpened"), rules.Ignore()).
		Build()
	require.NoError(t, err)

	res := mustMerge(t,
		"[General]\ntheme=dark\nlastOpened=/home/a\n",
		"[General]\ntheme=light\nlastOpened=/home/b\n",
		set, Options{})

	assert.Equal(t, "[General]\ntheme=light\nlastOpened=/home/a\n", res.String(),
		"Unmatched keys take the source value, ignored keys keep the target value")
	assert.Empty(t, res.Warnings())
}

func TestMerge_AppendsMissingKeysAndSections(t *testing.T) {
	res := mustMerge(t,
		"[General]\ntheme=dark\n",
		"[General]\ntheme=dark\n[Window]\nwidth=800\n",
		emptyRules(t), Options{})

	assert.Equal(t, "[General]\ntheme=dark\n[Window]\nwidth=800\n", res.String(),
		"Source-only sections are appended after the target content, in source order")
}

func TestMerge_DuplicateKeysResolvePositionally(t *testing.T) {
	t.Run("ExhaustedOccurrencesKeepTarget", func(t *testing.T) {
		res := mustMerge(t,
			"[s]\na=1\na=2\na=3\n",
			"[s]\na=x\na=y\n",
			emptyRules(t), Options{})

		assert.Equal(t, "[s]\na=x\na=y\na=3\n", res.String(),
			"The n-th target occurrence takes the n-th source occurrence; extras keep the target value")
	})

	t.Run("LeftoverSourceOccurrencesAreDropped", func(t *testing.T) {
		res := mustMerge(t,
			"[s]\na=1\n",
			"[s]\na=x\na=y\na=z\n",
			emptyRules(t), Options{})

		assert.Equal(t, "[s]\na=x\n", res.String(),
			"A key already present in the target does not get its surplus occurrences appended")
	})
}

func TestMerge_ReopenedSectionAppendsAtLastOccurrence(t *testing.T) {
	res := mustMerge(t,
		"[s]\na=1\n[t]\nx=1\n[s]\nb=2\n",
		"[s]\nnew=9\n",
		emptyRules(t), Options{})

	assert.Equal(t, "[s]\na=1\n[t]\nx=1\n[s]\nb=2\nnew=9\n", res.String(),
		"Appends for a reopened section belong after its final fragment")
}

func TestMerge_IgnoreAndPreserveSuppressAppends(t *testing.T) {
	set, err := rules.NewBuilder().
		Add(rules.Literal("s"), rules.Literal("ignored"), rules.Ignore()).
		Add(rules.Literal("s"), rules.Literal("preserved"), rules.Preserve()).
		Build()
	require.NoError(t, err)

	res := mustMerge(t,
		"[s]\na=1\n",
		"[s]\na=1\nignored=x\npreserved=y\n",
		set, Options{})

	assert.Equal(t, "[s]\na=1\n", res.String(),
		"Keys absent from the target never get appended when a rule keeps the target value")
}

func TestMerge_DeleteRules(t *testing.T) {
	t.Run("Key", func(t *testing.T) {
		set, err := rules.NewBuilder().
			Add(rules.Literal("s"), rules.Literal("gone"), rules.Delete()).
			Build()
		require.NoError(t, err)

		res := mustMerge(t,
			"[s]\nkeep=1\ngone=2\n",
			"[s]\nkeep=1\ngone=3\n",
			set, Options{})

		assert.Equal(t, "[s]\nkeep=1\n", res.String(),
			"A deleted key vanishes from the output even when the source still carries it")
	})

	t.Run("WholeSection", func(t *testing.T) {
		set, err := rules.NewBuilder().
			AddSection(rules.Literal("tmp"), rules.Delete()).
			AddSection(rules.Literal("scratch"), rules.Delete()).
			Build()
		require.NoError(t, err)

		res := mustMerge(t,
			"[tmp]\n; scratch\nx=1\n\n[keep]\na=1\n",
			"[tmp]\ny=2\n[scratch]\nz=3\n",
			set, Options{})

		assert.Equal(t, "[keep]\na=1\n", res.String(),
			"A deleted section disappears with its comments and blanks, and is never appended from the source")
	})

	t.Run("SectionWithSurvivingKey", func(t *testing.T) {
		set, err := rules.NewBuilder().
			Add(rules.Literal("legacy"), rules.Literal("keep"), rules.Ignore()).
			AddSection(rules.Literal("legacy"), rules.Delete()).
			Build()
		require.NoError(t, err)

		res := mustMerge(t,
			"[legacy]\n; old stuff\nold=1\nkeep=2\n[next]\na=1\n",
			"",
			set, Options{})

		assert.Equal(t, "[legacy]\nkeep=2\n[next]\na=1\n", res.String(),
			"The header of a deleted section reappears when an earlier key rule keeps a line alive")
	})
}

func TestMerge_SetRules(t *testing.T) {
	set, err := rules.NewBuilder().
		Add(rules.Literal("auth"), rules.Literal("user"), rules.Set("admin")).
		Add(rules.Literal("auth"), rules.Literal("token"), rules.Set("t0")).
		Add(rules.Literal("svc"), rules.Literal("mode"), rules.Set("on")).
		Build()
	require.NoError(t, err)

	res := mustMerge(t,
		"[auth]\nuser = guest\n",
		"",
		set, Options{})

	assert.Equal(t, "[auth]\nuser = admin\ntoken=t0\n[svc]\nmode=on\n", res.String(),
		"Set rewrites the existing line in place, appends missing keys, and creates missing sections")
}

func TestMerge_Secrets(t *testing.T) {
	t.Run("ResolvedWithExpandedAccount", func(t *testing.T) {
		set, err := rules.NewBuilder().
			Add(rules.Literal("api"), rules.Literal("token"), rules.Secret("inimerge", "{section}-{key}", rules.SecretFatal)).
			Build()
		require.NoError(t, err)

		var gotService, gotAccount string
		resolver := secrets.ResolverFunc(func(service, account string) (string, error) {
			gotService, gotAccount = service, account
			return "s3cr3t", nil
		})

		res := mustMerge(t,
			"[api]\ntoken = old\n",
			"",
			set, Options{Resolver: resolver})

		assert.Equal(t, "[api]\ntoken = s3cr3t\n", res.String())
		assert.Equal(t, "inimerge", gotService)
		assert.Equal(t, "api-token", gotAccount, "Account template placeholders should be expanded")
		assert.Empty(t, res.Warnings())
	})

	t.Run("AppendedKeyIsResolved", func(t *testing.T) {
		set, err := rules.NewBuilder().
			Add(rules.Literal("api"), rules.Literal("token"), rules.Secret("inimerge", "{key}", rules.SecretFatal)).
			Build()
		require.NoError(t, err)

		resolver := secrets.ResolverFunc(func(service, account string) (string, error) {
			return "s3cr3t", nil
		})

		res := mustMerge(t,
			"[api]\nname=a\n",
			"[api]\nname=a\ntoken=placeholder\n",
			set, Options{Resolver: resolver})

		assert.Equal(t, "[api]\nname=a\ntoken=s3cr3t\n", res.String(),
			"A source-only secret key is appended with the resolved value, not the placeholder")
	})

	t.Run("LookupFailureIsFatal", func(t *testing.T) {
		set, err := rules.NewBuilder().
			Add(rules.Literal("api"), rules.Literal("token"), rules.Secret("inimerge", "{section}", rules.SecretFatal)).
			Build()
		require.NoError(t, err)

		backendErr := errors.New("backend down")
		resolver := secrets.ResolverFunc(func(service, account string) (string, error) {
			return "", backendErr
		})

		tgt, err := document.Parse("[api]\ntoken=old\n")
		require.NoError(t, err)
		src, err := document.Parse("")
		require.NoError(t, err)

		res, err := Merge(tgt, document.BuildSourceIndex(src), set, Options{Resolver: resolver})
		require.Error(t, err)
		assert.Nil(t, res, "No partial result on a fatal lookup failure")

		var lookupErr *SecretLookupError
		require.ErrorAs(t, err, &lookupErr)
		assert.Equal(t, "api", lookupErr.Section)
		assert.Equal(t, "token", lookupErr.Key)
		assert.Equal(t, "inimerge", lookupErr.Service)
		assert.Equal(t, "api", lookupErr.Account)
		assert.ErrorIs(t, err, backendErr, "The backend error should stay reachable through the chain")
	})

	t.Run("KeepTargetDowngradesToWarning", func(t *testing.T) {
		set, err := rules.NewBuilder().
			Add(rules.Literal("api"), rules.Literal("token"), rules.Secret("inimerge", "{key}", rules.SecretKeepTarget)).
			Build()
		require.NoError(t, err)

		res := mustMerge(t,
			"[api]\ntoken = old\n",
			"",
			set, Options{Resolver: secrets.Disabled()})

		assert.Equal(t, "[api]\ntoken = old\n", res.String(),
			"The target value stays when the rule opts into keep-target")
		require.Len(t, res.Warnings(), 1)
		w := res.Warnings()[0]
		assert.Equal(t, "api", w.Section)
		assert.Equal(t, "token", w.Key)
		assert.ErrorIs(t, w.Err, secrets.ErrNotFound)
	})
}

func TestMerge_FormattingPreserved(t *testing.T) {
	t.Run("SpacingAndLineEndings", func(t *testing.T) {
		res := mustMerge(t,
			"[s]\r\nkey  =  old  \r\n",
			"[s]\nkey=new\nextra = 1\n",
			emptyRules(t), Options{})

		assert.Equal(t, "[s]\r\nkey  =  new  \r\nextra = 1\r\n", res.String(),
			"Substitution keeps the target's spacing; appended lines use the target's line ending")
	})

	t.Run("BareAndValuedLinesDisagree", func(t *testing.T) {
		res := mustMerge(t,
			"[s]\nk=1\nb\n",
			"[s]\nk\nb=2\n",
			emptyRules(t), Options{})

		assert.Equal(t, "[s]\nk\nb=2\n", res.String(),
			"When only one side has a separator, the source's own line is used")
	})

	t.Run("AppendAfterMissingTrailingNewline", func(t *testing.T) {
		res := mustMerge(t,
			"[s]\na=1",
			"[s]\na=1\nb=2\n",
			emptyRules(t), Options{})

		assert.Equal(t, "[s]\na=1\nb=2\n", res.String(),
			"A terminator is inserted before appending to an unterminated final line")
	})
}

func TestMerge_PreambleKeys(t *testing.T) {
	res := mustMerge(t,
		"tgt=1\n[s]\na=1\n",
		"tgt=2\nsrc=3\n[s]\na=1\n",
		emptyRules(t), Options{})

	assert.Equal(t, "tgt=2\nsrc=3\n[s]\na=1\n", res.String(),
		"Keys before the first section merge like any other, and source-only ones land before the first header")
}

// TestMerge_MixedRulesDocument runs one realistic document through every rule
// kind at once.
func TestMerge_MixedRulesDocument(t *testing.T) {
	target := `; Comments are copied from target
tgt_first=1
[s1]
a = 32
b = will be kept
c = ignored, kept
playmedia=none,none,Play media playback
unsorted_same=4,3,2,1
unsorted_different=3,2,1

[s2]
b = overwritten
d
e

[s3]
runtime = 3

[s5]
b_ign = 2
aaa = 2
`
	source := `; Comments in source are not copied
src_first=1
[s1]
a = 42
playmedia=none,,Play media playback
unsorted_same=1,2,3,4
unsorted_different=1,2,3,5

[s2]
b = value
c

[s4]
source_only = 42

[s5]
a_ign = 2
aaa = 3
`
	want := `; Comments are copied from target
tgt_first=1
src_first=1
[s1]
a = 42
b = will be kept
c = ignored, kept
playmedia=none,none,Play media playback
unsorted_same=4,3,2,1
unsorted_different=1,2,3,5

[s2]
b = value
d

c
[s3]
runtime = 3

[s5]
b_ign = 2
aaa = 3
[s4]
source_only = 42
`

	set, err := rules.NewBuilder().
		AddSection(rules.Literal("s3"), rules.Ignore()).
		Add(rules.Literal("s1"), rules.Literal("c"), rules.Ignore()).
		Add(rules.Literal("s2"), rules.Literal("e"), rules.Delete()).
		Add(rules.Literal("s1"), rules.Literal("playmedia"), rules.Transform(rules.KdeShortcut{})).
		Add(rules.Literal("s5"), rules.Pattern(`.*_ign`), rules.Ignore()).
		Add(rules.Literal("s1"), rules.Pattern(`unsorted_.*`), rules.Transform(rules.UnsortedList{Separator: ","})).
		Build()
	require.NoError(t, err)

	res := mustMerge(t, target, source, set, Options{})
	assert.Equal(t, want, res.String())
	assert.Empty(t, res.Warnings())
}

func TestMerge_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"[s]\na=1\n",
		"; c\ntop=1\n[s]\na = 1\n[t]\nb=2\n[s]\nc=3\na=2\n",
		"[s]\r\nk  =  v  \r\n\r\n[t]\r\nbare\r\n",
		"[s]\na=1",
	}
	set := emptyRules(t)

	for _, input := range inputs {
		res := mustMerge(t, input, input, set, Options{})
		assert.Equal(t, input, res.String(), "Merging a document into itself must be the identity")
	}
}

// TestMerge_IdempotentProperty checks the identity over generated documents.
func TestMerge_IdempotentProperty(t *testing.T) {
	set := emptyRules(t)

	rapid.Check(t, func(t *rapid.T) {
		lineGen := rapid.OneOf(
			rapid.StringMatching(`[a-z]{1,6}[ ]?=[ ]?[a-zA-Z0-9, ]{0,10}`),
			rapid.StringMatching(`[a-z]{1,6}`),
			rapid.StringMatching(`\[[a-z]{1,4}\]`),
			rapid.StringMatching(`[;#][a-zA-Z0-9 ]{0,10}`),
			rapid.Just(""),
		)
		lines := rapid.SliceOfN(lineGen, 0, 16).Draw(t, "lines")
		input := strings.Join(lines, "\n")

		doc, err := document.Parse(input)
		if err != nil {
			t.Fatalf("generated input should parse: %v", err)
		}
		res, err := Merge(doc, document.BuildSourceIndex(doc), set, Options{})
		if err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		if got := res.String(); got != input {
			t.Fatalf("not idempotent:\n in: %q\nout: %q", input, got)
		}
	})
}
