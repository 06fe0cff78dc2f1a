package app

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestRegisterFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	// Verify all flags are registered
	expectedFlags := []string{
		"transport",
		"host",
		"port",
		"store-driver",
		"store-dsn",
		"search-backend",
		"search-index",
		"search-path",
		"search-addresses",
		"search-username",
		"search-password",
		"search-max-results",
	}

	for _, name := range expectedFlags {
		if flags.Lookup(name) == nil {
			t.Errorf("Expected flag %q to be registered", name)
		}
	}
}

func TestRegisterStoreFlags_NoTransportFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterStoreFlags(flags)

	for _, name := range []string{"transport", "host", "port"} {
		if flags.Lookup(name) != nil {
			t.Errorf("Did not expect flag %q", name)
		}
	}
	if flags.Lookup("store-dsn") == nil {
		t.Error("Expected flag 'store-dsn' to be registered")
	}
}

func TestRegisterFlags_Shorthand(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	shorthandFlags := map[string]string{
		"transport":      "t",
		"host":           "H",
		"port":           "p",
		"store-driver":   "d",
		"search-backend": "b",
	}

	for name, shorthand := range shorthandFlags {
		flag := flags.Lookup(name)
		if flag == nil {
			t.Errorf("Flag %q not found", name)
			continue
		}
		if flag.Shorthand != shorthand {
			t.Errorf("Flag %q expected shorthand %q, got %q", name, shorthand, flag.Shorthand)
		}
	}
}

func TestRegisterFlags_SetValues(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	err := flags.Parse([]string{
		"--transport", "sse",
		"--host", "localhost",
		"--port", "9090",
		"--search-backend", "elasticsearch",
		"--search-addresses", "http://es1:9200,http://es2:9200",
	})
	if err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	transport, _ := flags.GetString("transport")
	if transport != "sse" {
		t.Errorf("Expected transport 'sse', got '%s'", transport)
	}

	host, _ := flags.GetString("host")
	if host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", host)
	}

	port, _ := flags.GetInt("port")
	if port != 9090 {
		t.Errorf("Expected port 9090, got %d", port)
	}

	backend, _ := flags.GetString("search-backend")
	if backend != "elasticsearch" {
		t.Errorf("Expected search-backend 'elasticsearch', got '%s'", backend)
	}

	addresses, _ := flags.GetStringSlice("search-addresses")
	if len(addresses) != 2 {
		t.Errorf("Expected 2 addresses, got %v", addresses)
	}
}
