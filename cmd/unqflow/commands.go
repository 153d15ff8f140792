package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unqworkflow/unqflow/internal/config"
)

// --- connect ---

var connectCmd = &cobra.Command{
	Use:   "connect <url>",
	Short: "Connect the dashboard to an AI Engine",
	Long: `Probe an AI Engine base URL and mark it as the active backend.

Examples:
  unqflow connect http://localhost:8000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/connect", map[string]string{"url": url})
		if err != nil {
			return err
		}

		var result struct {
			URL       string `json:"url"`
			Connected bool   `json:"connected"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Connected {
			printError("Could not connect to AI Engine at %s", url)
			return fmt.Errorf("engine not reachable")
		}

		// Persist the URL so the server probes it on the next start.
		if err := config.SetKey("engine.base_url", result.URL); err != nil {
			printWarning("connected, but could not save engine URL: %v", err)
		}
		printSuccess("Connected to AI Engine at %s", result.URL)
		return nil
	},
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Queue a new AI video generation",
	Long: `Queue a new AI video generation for a social-media channel.

Examples:
  unqflow generate "Go concurrency patterns" --duration 300 --platform youtube
  unqflow generate "Quick espresso tips" --platform instagram --tags coffee,shorts`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := strings.Join(args, " ")
		duration, _ := cmd.Flags().GetInt("duration")
		platform, _ := cmd.Flags().GetString("platform")
		contentType, _ := cmd.Flags().GetString("type")
		audience, _ := cmd.Flags().GetString("audience")
		channel, _ := cmd.Flags().GetString("channel")
		voice, _ := cmd.Flags().GetString("voice")
		seo, _ := cmd.Flags().GetBool("seo")
		tagsStr, _ := cmd.Flags().GetString("tags")

		var tags []string
		if tagsStr != "" {
			tags = strings.Split(tagsStr, ",")
			for i := range tags {
				tags[i] = strings.TrimSpace(tags[i])
			}
		}

		req := map[string]any{
			"topic":           topic,
			"duration":        duration,
			"platform":        platform,
			"contentType":     contentType,
			"targetAudience":  audience,
			"voice":           voice,
			"seoOptimization": seo,
		}
		if channel != "" {
			req["channelId"] = channel
		}
		if tags != nil {
			req["tags"] = tags
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/generations", req)
		if err != nil {
			return err
		}

		var gen struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := decodeJSON(resp, &gen); err != nil {
			return err
		}

		printSuccess("Queued generation %s (%s)", gen.ID, gen.Status)
		return nil
	},
}

func init() {
	generateCmd.Flags().Int("duration", 300, "target duration in seconds")
	generateCmd.Flags().String("platform", "youtube", "target platform (youtube, instagram)")
	generateCmd.Flags().String("type", "educational", "content category")
	generateCmd.Flags().String("audience", "General Audience", "intended audience")
	generateCmd.Flags().String("channel", "", "channel id")
	generateCmd.Flags().String("voice", "", "narration voice")
	generateCmd.Flags().Bool("seo", true, "enable SEO optimization")
	generateCmd.Flags().String("tags", "", "comma-separated tags")
}

// --- generations ---

var generationsCmd = &cobra.Command{
	Use:   "generations",
	Short: "Inspect and control tracked generations",
}

type generationRow struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Platform  string `json:"platform"`
	CreatedAt string `json:"createdAt"`
}

var generationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked generations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFilter, _ := cmd.Flags().GetString("status")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/generations"
		if statusFilter != "" {
			path += "?status=" + statusFilter
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var gens []generationRow
		if err := decodeJSON(resp, &gens); err != nil {
			return err
		}

		if len(gens) == 0 {
			fmt.Println("No generations found.")
			return nil
		}

		for _, g := range gens {
			topic := g.Topic
			if len(topic) > 60 {
				topic = topic[:60] + "..."
			}
			fmt.Printf("%s  %s %3d%%  %-9s  %s\n",
				colorize(colorCyan, shortID(g.ID)),
				colorize(statusColor(g.Status), fmt.Sprintf("%-10s", g.Status)),
				g.Progress,
				g.Platform,
				topic,
			)
		}
		return nil
	},
}

var generationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single generation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/generations/"+args[0])
		if err != nil {
			return err
		}

		var gen any
		if err := decodeJSON(resp, &gen); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(gen)
	},
}

var generationsPauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Pause a running generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/generations/"+args[0]+"/pause", nil)
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Paused generation %s", args[0])
		return nil
	},
}

var generationsResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/generations/"+args[0]+"/resume", nil)
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Resumed generation %s", args[0])
		return nil
	},
}

var generationsCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a generation and abort any in-flight engine request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/generations/"+args[0])
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Cancelled generation %s", args[0])
		return nil
	},
}

func init() {
	generationsListCmd.Flags().String("status", "", "filter by status")
	generationsCmd.AddCommand(generationsListCmd)
	generationsCmd.AddCommand(generationsShowCmd)
	generationsCmd.AddCommand(generationsPauseCmd)
	generationsCmd.AddCommand(generationsResumeCmd)
	generationsCmd.AddCommand(generationsCancelCmd)
}

// --- notifications ---

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Manage dashboard notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		unreadOnly, _ := cmd.Flags().GetBool("unread")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/notifications"
		if unreadOnly {
			path += "?unread=true"
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var notifications []struct {
			ID        string `json:"id"`
			Type      string `json:"type"`
			Title     string `json:"title"`
			Message   string `json:"message"`
			Timestamp string `json:"timestamp"`
			Read      bool   `json:"read"`
		}
		if err := decodeJSON(resp, &notifications); err != nil {
			return err
		}

		if len(notifications) == 0 {
			fmt.Println("No notifications.")
			return nil
		}

		for _, n := range notifications {
			marker := " "
			if !n.Read {
				marker = colorize(colorYellow, "●")
			}
			fmt.Printf("%s %s  %-7s  %s — %s\n",
				marker,
				colorize(colorCyan, shortID(n.ID)),
				n.Type,
				colorize(colorBold, n.Title),
				n.Message,
			)
		}
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/notifications/"+args[0]+"/read", nil)
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Marked %s as read", args[0])
		return nil
	},
}

var notificationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/notifications")
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Notifications cleared")
		return nil
	},
}

func init() {
	notificationsListCmd.Flags().Bool("unread", false, "show unread notifications only")
	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsClearCmd)
}

// --- theme ---

var themeCmd = &cobra.Command{
	Use:   "theme <light|dark|system>",
	Short: "Set the dashboard theme preference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/preferences", map[string]string{"theme": args[0]})
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Theme set to %s", args[0])
		return nil
	},
}

// --- metrics ---

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show dashboard metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/metrics")
		if err != nil {
			return err
		}

		var m struct {
			TotalChannels     int     `json:"totalChannels"`
			ActiveGenerations int     `json:"activeGenerations"`
			PublishedToday    int     `json:"publishedToday"`
			TotalViews        int64   `json:"totalViews"`
			TotalSubscribers  int64   `json:"totalSubscribers"`
			Revenue           float64 `json:"revenue"`
			QueuedContent     int     `json:"queuedContent"`
			Errors            int     `json:"errors"`
		}
		if err := decodeJSON(resp, &m); err != nil {
			return err
		}

		printStatus("Channels", "%d", m.TotalChannels)
		printStatus("Active generations", "%d", m.ActiveGenerations)
		printStatus("Published today", "%d", m.PublishedToday)
		printStatus("Total views", "%d", m.TotalViews)
		printStatus("Subscribers", "%d", m.TotalSubscribers)
		printStatus("Revenue", "$%.2f", m.Revenue)
		printStatus("Queued content", "%d", m.QueuedContent)
		printStatus("Errors", "%d", m.Errors)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export or purge generation history",
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived generation history as JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var writer *os.File
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		} else {
			writer = os.Stdout
		}

		enc := json.NewEncoder(writer)

		offset := 0
		for {
			resp, err := client.get(cmd.Context(), fmt.Sprintf("/history?limit=100&offset=%d", offset))
			if err != nil {
				return err
			}
			var records []any
			if err := decodeJSON(resp, &records); err != nil {
				return err
			}
			if len(records) == 0 {
				break
			}
			for _, rec := range records {
				record := map[string]any{"type": "generation_history", "data": rec}
				enc.Encode(record)
			}
			offset += len(records)
		}

		if output != "" {
			printSuccess("History exported to %s", output)
		}
		return nil
	},
}

var dataPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete archived history and clear notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL archived history. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Purging generation history...")
		resp, err := client.delete(cmd.Context(), "/history")
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printStep("Clearing notifications...")
		nresp, err := client.delete(cmd.Context(), "/notifications")
		if err != nil {
			return err
		}
		if err := drainOK(nresp); err != nil {
			return err
		}

		printSuccess("All data purged")
		return nil
	},
}

func init() {
	dataExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	dataPurgeCmd.Flags().Bool("confirm", false, "confirm data purge")
	dataCmd.AddCommand(dataExportCmd)
	dataCmd.AddCommand(dataPurgeCmd)
}
