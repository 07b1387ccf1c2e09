package codemod

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/takumakei/nestfix/nest"
)

func fixModulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-modules",
		Short: "Type DTO parameters and pass @CurrentUserId() from controllers to services",
		Long: `For every module in the dtos table, type the createDto and updateDto
parameters of the service create/update methods and add an @CurrentUserId()
parameter to the controller create/update handlers, passing it on to the
service call.`,
		Args: cobra.NoArgs,
		RunE: tallyRun((*nest.Runner).FixModules),
	}
}

func fixTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-types",
		Short: "Rename singular entity types to their plural form",
		Long: `Walk src/modules and, in every controller, service and module file,
rename the singular entity types of the plurals table in decorator metadata
(type: [X], type: X}, type: X)), Promise<X[]> return types and [X] arrays.
The fixups table is applied afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := sessionOf(cmd)
			sweep, err := sess.runner.FixTypes(cmd.Context())
			if err != nil {
				return err
			}
			root := sess.runner.Layout.Root
			for _, path := range sweep.Changed {
				fmt.Fprintf(sess.out, "fixed %s\n", rel(root, path))
			}
			for _, f := range sweep.Failed {
				fmt.Fprintf(sess.out, "FAIL  %s: %v\n", rel(root, f.Path), f.Err)
			}
			fmt.Fprintf(sess.out, "files changed: %d\n", len(sweep.Changed))
			return nil
		},
	}
}

func auditCommand() *cobra.Command {
	var keepTypes bool
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Stamp the current user on entities in create/update",
		Long: `For every module in the entities table, give the service create/update
methods an optional userId, set it on the entity as _userId after
repository.create() and Object.assign(), and pass @CurrentUserId() from the
controller. The service signatures lose their DTO types; run fix-modules
afterwards to restore them.

With --keep-types the typed signatures create(createXDto: CreateXDto) and
update(id: number, updateXDto: UpdateXDto) are kept and only extended, every
repository create and Object.assign of a DTO is stamped, and the controller
handlers get a trailing @CurrentUserId() parameter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			op := (*nest.Runner).Audit
			if keepTypes {
				op = (*nest.Runner).AuditTyped
			}
			return tallyRun(op)(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&keepTypes, "keep-types", false, "keep the DTO types of the service signatures")
	return cmd
}

func addUserIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-userid",
		Short: "Insert the _userId stamp into service create/update bodies",
		Args:  cobra.NoArgs,
		RunE:  tallyRun((*nest.Runner).AddUserID),
	}
}

func tablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Print the name tables in effect as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := sessionOf(cmd)
			return sess.runner.Tables.Encode(sess.out)
		},
	}
}

func tallyRun(op func(*nest.Runner, context.Context) (*nest.Tally, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sess := sessionOf(cmd)
		tally, err := op(sess.runner, cmd.Context())
		if tally != nil {
			printTally(sess.out, sess.runner.Layout.Root, tally)
		}
		return err
	}
}

func printTally(w io.Writer, root string, t *nest.Tally) {
	for _, o := range t.Outcomes {
		if o.OK() {
			fmt.Fprintf(w, "ok   %s\n", o.Module)
			continue
		}
		fmt.Fprintf(w, "FAIL %s\n", o.Module)
		for _, f := range o.Files {
			switch {
			case f.Missing():
				fmt.Fprintf(w, "     missing %s\n", rel(root, f.Path))
			case f.Err != nil:
				fmt.Fprintf(w, "     %v\n", f.Err)
			}
		}
	}
	fmt.Fprintf(w, "succeeded: %d\nfailed: %d\n", t.Succeeded, t.Failed)
}

func rel(root, path string) string {
	if r, err := filepath.Rel(root, path); err == nil { // if NO error
		return filepath.ToSlash(r)
	}
	return path
}
