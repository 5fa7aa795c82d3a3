package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUserAllowsEverything(t *testing.T) {
	ac := NewDefaultUser()
	err := ac.CheckCommand(CatString, CmdFlag{}, []string{"any-key"}, AccessReadWrite, nil)
	assert.NoError(t, err)
}

func TestRestrictedUserOnlyAllowsConnection(t *testing.T) {
	ac := NewRestrictedUser("u", "p")
	assert.NoError(t, ac.CheckCommand(CatConnection, CmdFlag{}, nil, AccessRead, nil))
	assert.ErrorIs(t, ac.CheckCommand(CatString, CmdFlag{}, nil, AccessRead, nil), ErrNoPermission)
}

func TestDisabledUserIsAlwaysDenied(t *testing.T) {
	ac := NewDefaultUser()
	ac.ApplySetUser(SetUserOp{Disable: true})
	assert.ErrorIs(t, ac.CheckCommand(CatConnection, CmdFlag{}, nil, AccessRead, nil), ErrNoPermission)
}

func TestCheckPasswordWithNoPasswordAcceptsAnything(t *testing.T) {
	ac := NewDefaultUser()
	assert.True(t, ac.CheckPassword(""))
	assert.True(t, ac.CheckPassword("anything"))
}

func TestCheckPasswordRequiresExactMatch(t *testing.T) {
	ac := NewRestrictedUser("u", "secret")
	assert.False(t, ac.CheckPassword("wrong"))
	assert.True(t, ac.CheckPassword("secret"))
}

// TestSetUserAllowDenyMergeOrderMatchesSpecExample walks through the
// documented example: enable, allow the read category, then deny the
// write category, and confirm read still succeeds while write is denied.
func TestSetUserAllowDenyMergeOrderMatchesSpecExample(t *testing.T) {
	ac := NewRestrictedUser("u", "p")
	ac.ApplySetUser(SetUserOp{
		Enable:      true,
		HasPassword: true,
		Password:    "p",
		AllowCat:    []Category{CatRead},
	})
	ac.ApplySetUser(SetUserOp{DenyCat: []Category{CatWrite}})

	assert.NoError(t, ac.CheckCommand(CatRead, CmdFlag{}, nil, AccessRead, nil))
	assert.ErrorIs(t, ac.CheckCommand(CatWrite, CmdFlag{}, nil, AccessWrite, nil), ErrNoPermission)
}

// TestAllowCmdDenyCmdSplitsSharedCategory confirms ALLOWCMD/DENYCMD can
// separate two commands that share a category: GET and SET both carry
// CatString, but ALLOWCMD get DENYCMD set must still let GET through and
// reject SET.
func TestAllowCmdDenyCmdSplitsSharedCategory(t *testing.T) {
	getBit := CmdBit(0)
	setBit := CmdBit(1)

	ac := NewRestrictedUser("u", "p")
	ac.ApplySetUser(SetUserOp{
		Enable:      true,
		HasPassword: true,
		Password:    "p",
		AllowCmd:    getBit,
		DenyCmd:     setBit,
	})

	assert.NoError(t, ac.CheckCommand(CatString, getBit, nil, AccessRead, nil))
	assert.ErrorIs(t, ac.CheckCommand(CatString, setBit, nil, AccessWrite, nil), ErrNoPermission)
}

// TestDenyCmdOverridesCategoryAllow confirms DENYCMD wins even when the
// command's whole category is allowed.
func TestDenyCmdOverridesCategoryAllow(t *testing.T) {
	setBit := CmdBit(1)

	ac := NewRestrictedUser("u", "p")
	ac.ApplySetUser(SetUserOp{
		Enable:      true,
		HasPassword: true,
		Password:    "p",
		AllowCat:    []Category{CatString},
		DenyCmd:     setBit,
	})

	assert.ErrorIs(t, ac.CheckCommand(CatString, setBit, nil, AccessWrite, nil), ErrNoPermission)
}

func TestDenyOverridesAllowAtKeyLevel(t *testing.T) {
	ac := NewDefaultUser()
	ac.ApplySetUser(SetUserOp{DenyWriteKeys: []string{"secret:*"}})

	err := ac.CheckCommand(CatWrite, CmdFlag{}, []string{"secret:token"}, AccessWrite, nil)
	assert.ErrorIs(t, err, ErrNoPermission)

	err = ac.CheckCommand(CatWrite, CmdFlag{}, []string{"public:counter"}, AccessWrite, nil)
	assert.NoError(t, err)
}

func TestResetClearsKeyPatterns(t *testing.T) {
	ac := NewDefaultUser()
	ac.ApplySetUser(SetUserOp{DenyReadKeys: []string{"*"}})
	require.ErrorIs(t, ac.CheckCommand(CatRead, CmdFlag{}, []string{"x"}, AccessRead, nil), ErrNoPermission)

	ac.ApplySetUser(SetUserOp{ResetReadKeys: true})
	assert.NoError(t, ac.CheckCommand(CatRead, CmdFlag{}, []string{"x"}, AccessRead, nil))
}

func TestChannelPatternDeniesPublish(t *testing.T) {
	ac := NewDefaultUser()
	ac.ApplySetUser(SetUserOp{DenyChannels: []string{"admin.*"}})

	assert.ErrorIs(t, ac.CheckCommand(CatPubSub, CmdFlag{}, nil, AccessRead, []string{"admin.alerts"}), ErrNoPermission)
	assert.NoError(t, ac.CheckCommand(CatPubSub, CmdFlag{}, nil, AccessRead, []string{"public.chat"}))
}

func TestCategoryByNameIsCaseInsensitive(t *testing.T) {
	c, err := CategoryByName("STRING")
	require.NoError(t, err)
	assert.Equal(t, CatString, c)

	_, err = CategoryByName("bogus")
	assert.Error(t, err)
}

func TestMatchGlob(t *testing.T) {
	assert.True(t, MatchGlob("user:*", "user:123"))
	assert.False(t, MatchGlob("user:*", "session:123"))
	assert.True(t, MatchGlob("a?c", "abc"))
	assert.False(t, MatchGlob("a?c", "abbc"))
}
