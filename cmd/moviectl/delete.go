package main

import (
	"fmt"
	"strconv"

	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/spf13/cobra"
)

func newDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a movie by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("%w: invalid movie id %q", domain.ErrInvalidInput, args[0])
			}

			return flags.withUnitOfWork(cmd.Context(), func(uow domain.UnitOfWork) error {
				if err := uow.MovieRepo().DeleteByID(cmd.Context(), id); err != nil {
					return err
				}
				if err := uow.Save(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted movie %d\n", id)
				return nil
			})
		},
	}
}
