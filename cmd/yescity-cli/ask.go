package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"yescity/internal/model"
	"yescity/internal/service"
)

var askStream bool

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask for travel recommendations",
	Long: `Ask runs one free-text query through the pipeline and prints the result
envelope as JSON. Without a query it starts an interactive session.`,
	RunE: runAsk,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <query>",
	Short: "Show how a query is classified",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		app, closeApp, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp()

		intent := app.Recommendation.Classify(ctx, strings.Join(args, " "))
		return printJSON(cmd.OutOrStdout(), intent)
	},
}

var (
	categoryCity    string
	categoryFilters []string
)

var categoryCmd = &cobra.Command{
	Use:   "category <category>",
	Short: "Recommend within a fixed category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, ok := model.LookupCategory(args[0])
		if !ok {
			return fmt.Errorf("unknown category %q, must be one of: %s", args[0], strings.Join(model.CategoryNames(), ", "))
		}

		filters := make(map[string]string, len(categoryFilters))
		for _, f := range categoryFilters {
			k, v, found := strings.Cut(f, "=")
			if !found || strings.TrimSpace(k) == "" {
				return fmt.Errorf("invalid filter %q, expected key=value", f)
			}
			filters[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		app, closeApp, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp()

		result := app.Recommendation.GetByCategory(ctx, string(category), categoryCity, filters)
		return report(cmd.OutOrStdout(), result)
	},
}

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List the cities present in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		app, closeApp, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp()

		cities, err := app.Catalog.Cities(ctx)
		if err != nil {
			return err
		}
		for _, c := range cities {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVarP(&askStream, "stream", "s", false, "print pipeline events and model output as they arrive")
	categoryCmd.Flags().StringVar(&categoryCity, "city", "", "city to search in")
	categoryCmd.Flags().StringArrayVarP(&categoryFilters, "filter", "f", nil, "extra filter as key=value (repeatable)")

	rootCmd.AddCommand(askCmd, classifyCmd, categoryCmd, citiesCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, closeApp, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp()

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return askOnce(cmd.Context(), app.Recommendation, out, strings.Join(args, " "))
	}

	fmt.Fprintln(out, "YesCity travel assistant. Type a question, or 'exit' to quit.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := askOnce(cmd.Context(), app.Recommendation, out, query); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
	return scanner.Err()
}

func askOnce(ctx context.Context, svc *service.RecommendationService, out io.Writer, query string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !askStream {
		return report(out, svc.Run(ctx, query))
	}

	result := svc.RunStream(ctx, query, func(event string, data any) error {
		if event == service.EventContent {
			if m, ok := data.(map[string]any); ok {
				_, err := fmt.Fprint(out, m["content"])
				return err
			}
			return nil
		}
		_, err := fmt.Fprintf(os.Stderr, "[%s]\n", event)
		return err
	})
	fmt.Fprintln(out)
	return report(out, result)
}

func report(out io.Writer, result *model.RecommendationResult) error {
	if err := printJSON(out, result); err != nil {
		return err
	}
	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}
