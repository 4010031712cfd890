/*
Package cli provides the helpers shared by the sweeper commands.

Output Formatting:

Command results are rendered in one of four formats. Values that implement
Tabular are rendered as a table or CSV; every value can be rendered as JSON
or YAML:

	formatter, err := cli.NewFormatter(cli.FormatTable)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, result)

Errors:

UsageError marks bad flags or arguments, CommandError wraps a failed command.
ExitCode maps either to the process exit status.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
