package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewOwnerCmd создаёт группу команд для владельцев.
func NewOwnerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Manage owners",
	}

	cmd.AddCommand(newOwnerCreateCmd(clientFn, outputFn))

	return cmd
}

func newOwnerCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "create USERNAME",
		Short: "Register an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			owner, err := client.CreateOwner(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Owner created: %d", owner.ID))
			out.Print(
				[]string{"ID", "USERNAME", "CREATED"},
				[][]string{{strconv.FormatInt(owner.ID, 10), owner.Username, owner.CreatedAt}},
				owner,
			)
			return nil
		},
	}
}
