package imap

import (
	"testing"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchCriteriaSetsHeaders(t *testing.T) {
	criteria, err := buildSearchCriteria(SearchCriteria{From: "sender@example.com", Subject: "Meeting", UnseenOnly: true})
	require.NoError(t, err)
	require.Equal(t, "sender@example.com", criteria.Header.Get("From"))
	require.Equal(t, "Meeting", criteria.Header.Get("Subject"))
	require.Contains(t, criteria.WithoutFlags, goimap.SeenFlag)
}

func TestBuildSearchCriteriaParsesDates(t *testing.T) {
	criteria, err := buildSearchCriteria(SearchCriteria{SinceDate: "01-Jan-2024", BeforeDate: "31-Dec-2024"})
	require.NoError(t, err)
	require.Equal(t, 2024, criteria.Since.Year())
	require.Equal(t, 2024, criteria.Before.Year())
}

func TestBuildSearchCriteriaRejectsBadDate(t *testing.T) {
	_, err := buildSearchCriteria(SearchCriteria{SinceDate: "not-a-date"})
	require.Error(t, err)
}

func TestFormatAddressesSkipsIncomplete(t *testing.T) {
	addrs := []*goimap.Address{
		{PersonalName: "Alice", MailboxName: "alice", HostName: "example.com"},
		{MailboxName: "", HostName: "example.com"},
		{MailboxName: "bob", HostName: "example.com"},
	}
	formatted := formatAddresses(addrs)
	require.Equal(t, []string{"Alice <alice@example.com>", "bob@example.com"}, formatted)
}

func TestConfigPasswordRequiresEnvVar(t *testing.T) {
	cfg := Config{Host: "imap.example.com", PasswordEnv: "NOCODO_TEST_IMAP_PASSWORD_UNSET"}
	_, err := cfg.password()
	require.Error(t, err)
}

func TestConfigAddrDefaultsToTLSPort(t *testing.T) {
	cfg := Config{Host: "imap.example.com", UseTLS: true}
	require.Equal(t, "imap.example.com:993", cfg.addr())
}
