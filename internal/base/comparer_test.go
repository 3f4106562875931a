package base

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultComparerSeparator(t *testing.T) {
	testCases := []struct {
		a, b, want string
	}{
		{"black", "blue", "blb"},
		{"1", "2", "1"},
		{"1", "29", "2"},
		{"13", "19", "14"},
		{"13", "99", "2"},
		{"135", "19", "14"},
		{"1357", "19", "14"},
		{"1357", "2", "14"},
		{"13\xff", "14", "13\xff"},
		{"13\xff", "19", "14"},
		{"1\xff\xff", "19", "1\xff\xff"},
		{"1\xff\xff", "2", "1\xff\xff"},
		{"1\xff\xff", "9", "2"},
		{"same", "same", "same"},
		{"", "", ""},
	}
	for _, tc := range testCases {
		got := string(DefaultComparer.Separator(nil, []byte(tc.a), []byte(tc.b)))
		require.Equalf(t, tc.want, got, "Separator(%q, %q)", tc.a, tc.b)
	}
}

func TestDefaultComparerSuccessor(t *testing.T) {
	testCases := []struct {
		a, want string
	}{
		{"green", "h"},
		{"", ""},
		{"1", "2"},
		{"11", "2"},
		{"11\xff", "2"},
		{"1\xff", "2"},
		{"1\xff\xff", "2"},
		{"\xff", "\xff"},
		{"\xff\xff", "\xff\xff"},
	}
	for _, tc := range testCases {
		got := string(DefaultComparer.Successor(nil, []byte(tc.a)))
		require.Equalf(t, tc.want, got, "Successor(%q)", tc.a)
	}
}

func TestSharedPrefixLen(t *testing.T) {
	require.Equal(t, 0, SharedPrefixLen([]byte(""), []byte("a")))
	require.Equal(t, 3, SharedPrefixLen([]byte("abcdef"), []byte("abcxyz")))
	require.Equal(t, 3, SharedPrefixLen([]byte("abc"), []byte("abcdef")))
}
