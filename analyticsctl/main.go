package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeafMist/news-analytics/backend/internal/analytics"
	"github.com/DeafMist/news-analytics/backend/internal/auth"
	"github.com/DeafMist/news-analytics/backend/internal/config"
	"github.com/DeafMist/news-analytics/backend/internal/elasticsearch"
	"github.com/DeafMist/news-analytics/backend/internal/logger"
	"github.com/DeafMist/news-analytics/backend/internal/processing"
	"github.com/DeafMist/news-analytics/backend/internal/profile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd(os.Stdout, defaultDeps()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// deps are the collaborators the commands build; tests replace them.
type deps struct {
	openIndex    func(common config.Common) (analytics.Index, error)
	openProfiles func(ctx context.Context, s profile.Settings) (profile.Store, error)
}

func defaultDeps() deps {
	return deps{
		openIndex: func(c config.Common) (analytics.Index, error) {
			var opts []elasticsearch.Option
			if c.ElasticsearchUsername != "" {
				opts = append(opts, elasticsearch.WithBasicAuth(c.ElasticsearchUsername, c.ElasticsearchPassword))
			}
			return elasticsearch.New(c.ElasticsearchAddr, c.ElasticsearchIndex, logger.New("analyticsctl"), opts...)
		},
		openProfiles: profile.Open,
	}
}

type options struct {
	common    config.Common
	profile   profile.Settings
	filter    analytics.Filter
	userID    string
	timeout   time.Duration
	stopwords string
	pretty    bool
}

func newRootCmd(out io.Writer, d deps) *cobra.Command {
	o := &options{common: config.LoadCommon()}

	root := &cobra.Command{
		Use:          "analyticsctl",
		Short:        "Run news analytics operations against Elasticsearch",
		SilenceUsage: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&o.common.ElasticsearchAddr, "es-addr", o.common.ElasticsearchAddr, "Elasticsearch address")
	pf.StringVar(&o.common.ElasticsearchIndex, "index", o.common.ElasticsearchIndex, "index or index pattern to query")
	pf.StringVar(&o.profile.Backend, "profile-backend", profile.BackendNone, "keyword profile backend (postgres|sqlite|redis|none)")
	pf.StringVar(&o.profile.DSN, "profile-dsn", "", "DSN of the sql profile backend")
	pf.StringVar(&o.profile.RedisAddr, "redis-addr", "localhost:6379", "redis address of the redis profile backend")
	pf.StringVar(&o.profile.RedisPassword, "redis-password", os.Getenv("REDIS_PASSWORD"), "redis password of the redis profile backend")
	pf.IntVar(&o.profile.RedisDB, "redis-db", 0, "redis database of the redis profile backend")
	pf.StringVar(&o.userID, "user", "", "user whose saved keywords apply")
	pf.DurationVar(&o.timeout, "timeout", 30*time.Second, "query timeout")
	pf.BoolVar(&o.pretty, "pretty", false, "indent JSON output")

	for _, op := range analytics.Operations() {
		root.AddCommand(operationCmd(op, o, d))
	}
	root.AddCommand(searchCmd(o, d), sourcesCmd(o, d), keywordsCmd(o, d), tokenCmd())
	return root
}

func addFilterFlags(cmd *cobra.Command, o *options) {
	today := time.Now().UTC().Format(analytics.DateLayout)
	weekAgo := time.Now().UTC().AddDate(0, 0, -6).Format(analytics.DateLayout)

	f := cmd.Flags()
	f.StringVar(&o.filter.DateFrom, "from", weekAgo, "start date (YYYY-MM-DD)")
	f.StringVar(&o.filter.DateTo, "to", today, "end date (YYYY-MM-DD)")
	f.StringVar((*string)(&o.filter.Interval), "interval", string(analytics.IntervalDay), "day, week or month")
	f.StringSliceVar(&o.filter.Keywords, "keywords", nil, "up to three keywords")
	f.StringVar(&o.filter.Operator, "operator", "", "AND or OR (default: saved profile, else OR)")
	f.StringSliceVar(&o.filter.Sources, "sources", nil, "restrict to these sources")
	f.StringVar(&o.filter.Sentiment, "sentiment", "", "restrict to one sentiment")
	f.StringVar(&o.stopwords, "stopwords", "", "YAML file with extra stopwords")
}

// openService builds the engine for one command run. The returned cleanup
// closes the profile store, if any.
func openService(ctx context.Context, o *options, d deps) (*analytics.Service, func(), error) {
	index, err := d.openIndex(o.common)
	if err != nil {
		return nil, nil, err
	}

	tokenizer := processing.NewTokenizer()
	if o.stopwords != "" {
		extra, err := processing.LoadStopwords(o.stopwords)
		if err != nil {
			return nil, nil, err
		}
		tokenizer = processing.NewTokenizer(extra...)
	}

	var provider profile.Provider
	cleanup := func() {}
	store, err := d.openProfiles(ctx, o.profile)
	if err != nil {
		return nil, nil, err
	}
	if store != nil {
		provider = store
		cleanup = func() { _ = store.Close() }
	}

	svc := analytics.NewService(index, provider, analytics.Options{
		QueryTimeout:   o.timeout,
		ProfileTimeout: 3 * time.Second,
		Tokenizer:      tokenizer,
	})
	return svc, cleanup, nil
}

func operationCmd(op string, o *options, d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   op,
		Short: "Compute " + strings.ReplaceAll(op, "-", " "),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := openService(cmd.Context(), o, d)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Run(cmd.Context(), op, o.userID, o.filter)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), result, o.pretty)
		},
	}
	addFilterFlags(cmd, o)
	return cmd
}

func searchCmd(o *options, d deps) *cobra.Command {
	var page analytics.Page
	cmd := &cobra.Command{
		Use:   analytics.OpSearch,
		Short: "List matching articles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := openService(cmd.Context(), o, d)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Search(cmd.Context(), o.userID, o.filter, page)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), result, o.pretty)
		},
	}
	addFilterFlags(cmd, o)
	cmd.Flags().IntVar(&page.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&page.PageSize, "page-size", analytics.DefaultPageSize, "articles per page")
	return cmd
}

func sourcesCmd(o *options, d deps) *cobra.Command {
	return &cobra.Command{
		Use:   analytics.OpSources,
		Short: "List every source in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := openService(cmd.Context(), o, d)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.Sources(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), result, o.pretty)
		},
	}
}

func keywordsCmd(o *options, d deps) *cobra.Command {
	cmd := &cobra.Command{Use: "keywords", Short: "Manage saved keyword profiles"}

	withStore := func(run func(ctx context.Context, cmd *cobra.Command, store profile.Store) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if o.userID == "" {
				return fmt.Errorf("--user is required")
			}
			store, err := d.openProfiles(cmd.Context(), o.profile)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("--profile-backend is required")
			}
			defer store.Close()
			return run(cmd.Context(), cmd, store)
		}
	}

	get := &cobra.Command{
		Use:  "get",
		Args: cobra.NoArgs,
		RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store profile.Store) error {
			p, err := store.GetUserKeywords(ctx, o.userID)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), p, o.pretty)
		}),
	}

	var keywords []string
	var operator string
	set := &cobra.Command{
		Use:  "set",
		Args: cobra.NoArgs,
		RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store profile.Store) error {
			p, err := store.SetKeywords(ctx, profile.Profile{
				UserID:   o.userID,
				Keywords: keywords,
				Operator: profile.Operator(operator),
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), p, o.pretty)
		}),
	}
	set.Flags().StringSliceVar(&keywords, "keywords", nil, "one to three keywords")
	set.Flags().StringVar(&operator, "operator", "OR", "AND or OR")

	del := &cobra.Command{
		Use:  "delete",
		Args: cobra.NoArgs,
		RunE: withStore(func(ctx context.Context, _ *cobra.Command, store profile.Store) error {
			return store.DeleteKeywords(ctx, o.userID)
		}),
	}

	cmd.AddCommand(get, set, del)
	return cmd
}

func tokenCmd() *cobra.Command {
	var secret, subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for calling the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("AUTH_JWT_SECRET")
			}
			if secret == "" || subject == "" {
				return fmt.Errorf("--secret (or AUTH_JWT_SECRET) and --subject are required")
			}
			tok, err := auth.IssueAccessToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 signing secret")
	cmd.Flags().StringVar(&subject, "subject", "", "user id to embed as sub")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func writeOutput(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
