package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Store and fetch content-addressed cache entries",
}

var cachePutFileCmd = &cobra.Command{
	Use:   "put-file <path>",
	Short: "Cache a file and print its hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		p, err := absPath(args[0])
		if err != nil {
			return err
		}
		h, err := svc.Cache.CacheFile(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

var cachePutStringCmd = &cobra.Command{
	Use:   "put-string <content>",
	Short: "Cache a string and print its hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		h, err := svc.Cache.CacheString(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <hash>",
	Short: "Print the content cached under a hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		data, err := svc.Cache.GetCachedBytes(args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var cacheJSONCmd = &cobra.Command{
	Use:   "json <hash>",
	Short: "Parse a cached JSON entry and print it re-encoded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		v, err := svc.Cache.GetCachedJSON(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v)
	},
}

var cacheQueryCmd = &cobra.Command{
	Use:   "query <hash> <jsonpath>",
	Short: "Evaluate a JSONPath expression against a cached JSON entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		res, err := svc.Cache.QueryCachedJSON(args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var cacheHashCmd = &cobra.Command{
	Use:   "hash <path>",
	Short: "Print the digest of a file without caching it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		p, err := absPath(args[0])
		if err != nil {
			return err
		}
		h, err := svc.Cache.FileHash(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the cache index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), svc.CacheEntries())
		}
		return svc.Cache.Dump(cmd.OutOrStdout())
	},
}

func init() {
	cacheCmd.AddCommand(cachePutFileCmd, cachePutStringCmd, cacheGetCmd, cacheJSONCmd, cacheQueryCmd, cacheHashCmd, cacheListCmd)
	rootCmd.AddCommand(cacheCmd)
}
