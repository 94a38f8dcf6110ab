// Copyright (c) 2024 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Command piazzabench drives a Piazza-shaped (forum with per-class
// security policies) base-table write workload against a MySQL sink, the
// same schema and population order as the original piazza/mysql
// benchmark. It exists to exercise DomainInputHandle-shaped base writes
// against something runnable without a full cluster; it does not itself
// talk to a domain.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var (
		nUsers   int
		nClasses int
		nPosts   int
		private  float64
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "piazzabench <dsn>",
		Short: "Benchmarks a forum-like application with per-class security policies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := args[0]
			dbName := dbNameFromDSN(dsn)

			b, err := newBackend(dsn)
			if err != nil {
				return err
			}
			defer b.close()

			if err := b.createConnection(dbName); err != nil {
				return err
			}
			if err := b.createTables(); err != nil {
				return err
			}

			p := newPopulate(nPosts, nUsers, nClasses, private, seed)
			if err := b.populateTables(p); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "populated %s: %d users, %d classes, %d posts\n",
				dbName, nUsers, nClasses, nPosts)
			return nil
		},
	}

	cmd.Flags().IntVarP(&nUsers, "nusers", "u", 1000, "number of users in the db")
	cmd.Flags().IntVarP(&nClasses, "nclasses", "c", 100, "number of classes in the db")
	cmd.Flags().IntVarP(&nPosts, "nposts", "p", 100000, "number of posts in the db")
	cmd.Flags().Float64Var(&private, "private", 0.1, "fraction of private posts")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for dataset generation")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
