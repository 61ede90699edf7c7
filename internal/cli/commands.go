package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq"
	"github.com/roach88/nestq/internal/queue"
	"github.com/roach88/nestq/internal/record"
)

// MutationResult reports the queue after a write.
type MutationResult struct {
	Op     string `json:"op"`
	Path   string `json:"path,omitempty"`
	Length int    `json:"length"`
}

func (r MutationResult) String() string {
	if r.Path != "" {
		return fmt.Sprintf("%s %s: %d records", r.Op, r.Path, r.Length)
	}
	return fmt.Sprintf("%s: %d records", r.Op, r.Length)
}

// parseJSONArg decodes a command-line JSON value with integral numbers kept
// as int64.
func parseJSONArg(arg string) (any, error) {
	v, err := record.Decode([]byte(arg))
	if err != nil {
		return nil, WrapExitError(ExitFailure, CodeInput, "invalid JSON argument", err)
	}
	return v, nil
}

func parseRecordArg(arg string) (record.Record, error) {
	v, err := parseJSONArg(arg)
	if err != nil {
		return nil, err
	}
	r, ok := v.(map[string]any)
	if !ok {
		return nil, NewExitError(ExitFailure, CodeInput, "argument must be a JSON object")
	}
	return r, nil
}

func requirePath(q *nestq.Queue, p string) error {
	if _, ok := q.Get(p); !ok {
		return NewExitError(ExitFailure, CodeNotFound, fmt.Sprintf("nothing at path %q", p))
	}
	return nil
}

func queueError(op string, err error) error {
	return WrapExitError(ExitFailure, CodeQueue, op+" failed", err)
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "add <json>",
		Short: "Append a record, or an item to a nested sequence",
		Long: `Append a JSON value.

Without --path the value must be an object and becomes a new top-level
record. With --path it is appended to the sequence at that path.

Examples:
  nestq add '{"id":"a1","name":"Acme"}'
  nestq add '{"name":"Ann"}' --path 0.staff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var item any
			var err error
			if target == "" {
				item, err = parseRecordArg(args[0])
			} else {
				item, err = parseJSONArg(args[0])
			}
			if err != nil {
				return err
			}

			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				if target != "" {
					if err := requirePath(q, target); err != nil {
						return err
					}
				}
				if err := q.Add(ctx, item, target); err != nil {
					return queueError("add", err)
				}
				return opts.formatter(cmd).Success(MutationResult{Op: "add", Path: target, Length: q.Len()})
			})
		},
	}

	cmd.Flags().StringVar(&target, "path", "", "nested sequence to append to")
	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove the element at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := args[0]
			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				if err := requirePath(q, p); err != nil {
					return err
				}
				if err := q.Remove(ctx, p); err != nil {
					return queueError("remove", err)
				}
				return opts.formatter(cmd).Success(MutationResult{Op: "remove", Path: p, Length: q.Len()})
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <path> <json>",
		Short: "Merge fields into the mapping at a path",
		Long: `Shallow-merge a JSON object into the mapping at a path.

Example:
  nestq update 0.staff.1 '{"role":"lead"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := args[0]
			changes, err := parseRecordArg(args[1])
			if err != nil {
				return err
			}

			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				if err := requirePath(q, p); err != nil {
					return err
				}
				if err := q.Update(ctx, p, changes); err != nil {
					return queueError("update", err)
				}
				v, _ := q.Get(p)
				return opts.formatter(cmd).Value(v)
			})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print the value at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				v, ok := q.Get(args[0])
				if !ok {
					return NewExitError(ExitFailure, CodeNotFound, fmt.Sprintf("nothing at path %q", args[0]))
				}
				return opts.formatter(cmd).Value(v)
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				return opts.formatter(cmd).Value(nonNil(q.All()))
			})
		},
	}
}

// NewSortCommand creates the sort command.
func NewSortCommand(opts *RootOptions) *cobra.Command {
	var sortOpts record.SortOptions
	var desc bool

	cmd := &cobra.Command{
		Use:   "sort <key>",
		Short: "Sort a sequence by a field",
		Long: `Sort the top-level records, or the sequence at --path, by the value at key.

Nested sequences inside the sorted elements are sorted by the same key
unless --shallow is set. --max-depth bounds that recursion.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if desc {
				sortOpts.Direction = record.Desc
			}
			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				if err := q.Sort(ctx, args[0], sortOpts); err != nil {
					return queueError("sort", err)
				}
				return opts.formatter(cmd).Success(MutationResult{Op: "sort", Path: sortOpts.Path, Length: q.Len()})
			})
		},
	}

	cmd.Flags().StringVar(&sortOpts.Path, "path", "", "sequence to sort")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&sortOpts.Shallow, "shallow", false, "do not sort nested sequences")
	cmd.Flags().IntVar(&sortOpts.MaxDepth, "max-depth", 0, "bound nested sorting (0 is unbounded)")
	return cmd
}

// NewSearchCommand creates the search command.
func NewSearchCommand(opts *RootOptions) *cobra.Command {
	var searchOpts queue.SearchOptions
	var paths bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find records matching text or criteria",
		Long: `Search the queue.

A query that parses as a JSON object is a set of criteria keyed by path.
Anything else is matched as text against scalar fields.

Examples:
  nestq search acme
  nestq search '{"status":"open"}' --deep
  nestq search '{"role":"lead"}' --paths`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query any = args[0]
			if v, err := record.Decode([]byte(args[0])); err == nil {
				if m, ok := v.(map[string]any); ok {
					query = m
				}
			}

			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				f := opts.formatter(cmd)
				if !paths {
					return f.Value(nonNil(q.Search(query, searchOpts)))
				}

				criteria, ok := query.(map[string]any)
				if !ok {
					return NewExitError(ExitFailure, CodeInput, "--paths needs a JSON object query")
				}
				found := q.FindPaths(criteria, searchOpts)
				if found == nil {
					found = []string{}
				}
				return f.Value(found)
			})
		},
	}

	cmd.Flags().BoolVar(&searchOpts.Exact, "exact", false, "require equal strings")
	cmd.Flags().BoolVar(&searchOpts.CaseSensitive, "case-sensitive", false, "do not fold case")
	cmd.Flags().BoolVar(&searchOpts.Deep, "deep", false, "also match nested mappings")
	cmd.Flags().IntVar(&searchOpts.MaxDepth, "max-depth", 0, "bound --deep (0 is unbounded)")
	cmd.Flags().BoolVar(&searchOpts.Partial, "partial", false, "match when any criterion matches")
	cmd.Flags().BoolVar(&searchOpts.First, "first", false, "stop at the first match")
	cmd.Flags().StringSliceVar(&searchOpts.Paths, "field", nil, "restrict text matching to these paths")
	cmd.Flags().BoolVar(&paths, "paths", false, "print matching paths instead of records")
	return cmd
}

// NewClearCommand creates the clear command.
func NewClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				if err := q.Clear(ctx); err != nil {
					return queueError("clear", err)
				}
				return opts.formatter(cmd).Success(MutationResult{Op: "clear", Length: q.Len()})
			})
		},
	}
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Erase the persisted state for the namespace",
		Long: `Erase the persisted state for the namespace.

Unlike clear, purge leaves no saved state behind: the next command starts
from an empty queue without reading anything from the backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				if err := q.ClearPersistence(ctx); err != nil {
					return queueError("purge", err)
				}
				return opts.formatter(cmd).Success(MutationResult{Op: "purge", Length: 0})
			})
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Append the records of a JSON array file",
		Long: `Append every object of a JSON array file as a top-level record.

Records are added in file order. Each one passes through the configured
middleware, so ids are stamped and the schema is enforced per record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, CodeInput, "failed to read import file", err)
			}
			records, err := record.UnmarshalState(data)
			if err != nil {
				return WrapExitError(ExitFailure, CodeInput, "import file must be a JSON array of objects", err)
			}

			return opts.withQueue(cmd, func(ctx context.Context, q *nestq.Queue) error {
				for i, r := range records {
					if err := q.Add(ctx, r, ""); err != nil {
						return queueError(fmt.Sprintf("import record %d", i), err)
					}
				}
				return opts.formatter(cmd).Success(MutationResult{Op: "import", Length: q.Len()})
			})
		},
	}
}

func nonNil(state []record.Record) []record.Record {
	if state == nil {
		return []record.Record{}
	}
	return state
}
