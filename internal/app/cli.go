package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	RegisterStoreFlags(flags)
}

// RegisterStoreFlags registers the store and search index flags, shared by all commands
func RegisterStoreFlags(flags *pflag.FlagSet) {
	flags.StringP("store-driver", "d", "", "Store driver: postgres or sqlite")
	flags.String("store-dsn", "", "Store data source name (postgres URL or sqlite file)")
	flags.StringP("search-backend", "b", "", "Search backend: bleve or elasticsearch")
	flags.String("search-index", "", "Search index name")
	flags.String("search-path", "", "Bleve index directory (empty keeps the index in memory)")
	flags.StringSlice("search-addresses", nil, "Elasticsearch addresses (comma-separated)")
	flags.String("search-username", "", "Elasticsearch username")
	flags.String("search-password", "", "Elasticsearch password")
	flags.Int("search-max-results", 0, "Maximum number of search results")
}
