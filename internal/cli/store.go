package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/regraft/regraft/pkg/hierarchy"
	"github.com/regraft/regraft/pkg/store"
)

// storeOpts holds the backend flags shared by the store subcommands.
type storeOpts struct {
	dir      string // file backend directory
	mongoURI string // MongoDB connection string, enables the mongo backend
	mongoDB  string // MongoDB database name
}

// open picks the backend: MongoDB when a URI is given, files otherwise.
func (o *storeOpts) open(cmd *cobra.Command) (store.Store, error) {
	if o.mongoURI != "" {
		return store.NewMongoStore(cmd.Context(), o.mongoURI, o.mongoDB)
	}
	dir := o.dir
	if dir == "" {
		base, err := dataDir()
		if err != nil {
			return nil, fmt.Errorf("get data dir: %w", err)
		}
		dir = filepath.Join(base, "hierarchies")
	}
	return store.NewFileStore(dir)
}

// storeCommand creates the store command and its subcommands.
func (c *CLI) storeCommand() *cobra.Command {
	var opts storeOpts

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Save and load hierarchies from persistent storage",
		Long: `Manage named hierarchies in persistent storage. The default backend
keeps JSON files in the data directory; --mongo-uri switches to MongoDB.`,
	}

	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "file backend directory (default data dir)")
	cmd.PersistentFlags().StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB connection string")
	cmd.PersistentFlags().StringVar(&opts.mongoDB, "mongo-db", "regraft", "MongoDB database name")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored hierarchies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())
			names, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("No stored hierarchies")
				return nil
			}
			for _, name := range names {
				printDetail("%s", name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save NAME FILE",
		Short: "Store a hierarchy file under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := loadHierarchy(args[1])
			if err != nil {
				return err
			}
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())
			if err := s.Set(cmd.Context(), args[0], h); err != nil {
				return err
			}
			printSuccess("Stored hierarchy %s", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "load NAME [FILE]",
		Short: "Write a stored hierarchy to a file or stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())
			h, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := hierarchy.Marshal(h)
			if err != nil {
				return err
			}
			out := ""
			if len(args) == 2 {
				out = args[1]
			}
			return writeOutput(data, out)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a stored hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())
			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted hierarchy %s", args[0])
			return nil
		},
	})

	return cmd
}
