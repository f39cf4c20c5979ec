package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/packdex/internal/resolver"
)

var (
	loadResource bool
	webpOut      string
	maxSide      int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <uri>",
	Short: "Resolve a resource URI such as texture://group:name to its file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uri := args[0]
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		loc, ok := svc.Resolve(uri)
		if !ok {
			return fmt.Errorf("%w: %s", resolver.ErrNotFound, uri)
		}
		if !loadResource && webpOut == "" {
			if jsonOutput {
				return printJSON(out, loc)
			}
			fmt.Fprintf(out, "%s\t%s\n", loc.ContentType, loc.Path)
			return nil
		}

		res, err := svc.Resolver.Load(uri)
		if err != nil {
			return err
		}

		if webpOut != "" {
			img, ok := res.Texture()
			if !ok {
				return errors.New("--webp requires a texture resource")
			}
			img = resolver.Fit(img, maxSide)
			f, err := os.Create(webpOut)
			if err != nil {
				return err
			}
			if err := resolver.EncodeWebP(f, img); err != nil {
				_ = f.Close()
				return fmt.Errorf("encode %s: %w", webpOut, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			b := img.Bounds()
			fmt.Fprintf(out, "Wrote %s (%dx%d)\n", webpOut, b.Dx(), b.Dy())
			return nil
		}

		if img, ok := res.Texture(); ok {
			b := img.Bounds()
			fmt.Fprintf(out, "texture %s %dx%d\n", res.Path, b.Dx(), b.Dy())
			return nil
		}
		if f, ok := res.Font(); ok {
			fmt.Fprintf(out, "font %s glyphs=%d\n", res.Path, f.NumGlyphs())
			return nil
		}
		return printJSON(out, res.Value)
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&loadResource, "load", false, "Load the resource and describe it")
	resolveCmd.Flags().StringVar(&webpOut, "webp", "", "Write a texture resource to this path as WebP")
	resolveCmd.Flags().IntVar(&maxSide, "max-size", 0, "Downscale textures so neither side exceeds this (0 keeps size)")
	rootCmd.AddCommand(resolveCmd)
}
