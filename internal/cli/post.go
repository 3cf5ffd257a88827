package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewPostCmd создаёт группу команд для управления записями.
func NewPostCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage scheduled posts",
	}

	cmd.AddCommand(
		newPostListCmd(clientFn, outputFn),
		newPostScheduleCmd(clientFn, outputFn),
		newPostNowCmd(clientFn, outputFn),
		newPostPreviewCmd(clientFn, outputFn),
		newPostShowCmd(clientFn, outputFn),
		newPostEditCmd(clientFn, outputFn),
		newPostCancelCmd(clientFn, outputFn),
		newPostDeleteCmd(clientFn, outputFn),
		newPostStatsCmd(clientFn, outputFn),
	)

	return cmd
}

var postHeaders = []string{"ID", "KIND", "STATUS", "SCHEDULED_AT", "CONTENT"}

func postRow(p *PostResponse) []string {
	return []string{
		strconv.FormatInt(p.ID, 10), p.Kind, p.Status, p.ScheduledAt, preview(p.Content, 48),
	}
}

func newPostListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListPostsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			list, err := client.ListPosts(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(list))
			for i := range list {
				rows[i] = postRow(&list[i])
			}

			out.Print(postHeaders, rows, list)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.View, "view", "", "View: all, scheduled, pending, immediate")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Max posts to return")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Posts to skip")

	return cmd
}

func newPostScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var kind string
	var at string
	var in time.Duration
	var options []string
	var duration int
	var enhance bool

	cmd := &cobra.Command{
		Use:   "schedule CONTENT",
		Short: "Schedule a post for later",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			scheduledAt, err := resolveTime(at, in, time.Now())
			if err != nil {
				return err
			}

			post, err := client.SchedulePost(SchedulePostRequest{
				Content:         args[0],
				Kind:            kind,
				ScheduledAt:     scheduledAt,
				Options:         options,
				DurationMinutes: duration,
				Enhance:         enhance,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post scheduled: %d", post.ID))
			out.Print(postHeaders, [][]string{postRow(post)}, post)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Post kind: post or poll")
	cmd.Flags().StringVar(&at, "at", "", "Publish time in RFC 3339")
	cmd.Flags().DurationVar(&in, "in", 0, "Publish after duration (e.g. 2h)")
	cmd.Flags().StringSliceVar(&options, "option", nil, "Poll option (repeatable)")
	cmd.Flags().IntVar(&duration, "duration", 0, "Poll duration in minutes")
	cmd.Flags().BoolVar(&enhance, "enhance", false, "Rewrite content with AI before saving")

	return cmd
}

func newPostNowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var kind string
	var options []string
	var duration int
	var enhance bool

	cmd := &cobra.Command{
		Use:   "now CONTENT",
		Short: "Publish a post immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			post, err := client.PostNow(PostNowRequest{
				Content:         args[0],
				Kind:            kind,
				Options:         options,
				DurationMinutes: duration,
				Enhance:         enhance,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post published: %d", post.ID))
			out.Print(postHeaders, [][]string{postRow(post)}, post)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Post kind: post or poll")
	cmd.Flags().StringSliceVar(&options, "option", nil, "Poll option (repeatable)")
	cmd.Flags().IntVar(&duration, "duration", 0, "Poll duration in minutes")
	cmd.Flags().BoolVar(&enhance, "enhance", false, "Rewrite content with AI before publishing")

	return cmd
}

func newPostPreviewCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "preview CONTENT",
		Short: "Preview AI rewrite without saving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.Preview(PreviewRequest{Content: args[0], Kind: kind})
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ENHANCED", "CONTENT", "OPTIONS"},
				[][]string{{strconv.FormatBool(res.Enhanced), res.Content, strings.Join(res.Options, " | ")}},
				res,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Post kind: post or poll")

	return cmd
}

func newPostShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show post details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			client := clientFn()
			out := outputFn()

			post, err := client.GetPost(id)
			if err != nil {
				return err
			}

			options := ""
			if post.Poll != nil {
				options = strings.Join(post.Poll.Options, " | ")
			}

			out.Print(
				[]string{"ID", "KIND", "STATUS", "SCHEDULED_AT", "POSTED_AT", "OPTIONS", "ERROR"},
				[][]string{{
					strconv.FormatInt(post.ID, 10), post.Kind, post.Status,
					post.ScheduledAt, post.PostedAt, options, post.ErrorMessage,
				}},
				post,
			)
			return nil
		},
	}
}

func newPostEditCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var content string
	var at string
	var in time.Duration
	var options []string
	var duration int
	var reset bool

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a pending or failed post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			client := clientFn()
			out := outputFn()

			current, err := client.GetPost(id)
			if err != nil {
				return err
			}

			req := UpdatePostRequest{
				Content:        current.Content,
				ResetToPending: reset,
			}
			if cmd.Flags().Changed("content") {
				req.Content = content
			}

			if at != "" || in > 0 {
				req.ScheduledAt, err = resolveTime(at, in, time.Now())
				if err != nil {
					return err
				}
			} else {
				req.ScheduledAt, err = time.Parse(time.RFC3339, current.ScheduledAt)
				if err != nil {
					return fmt.Errorf("parse scheduled_at: %w", err)
				}
			}

			if current.Poll != nil {
				req.Options = current.Poll.Options
				req.PreviewOptions = current.Poll.PreviewOptions
				req.DurationMinutes = current.Poll.DurationMinutes
			}
			if cmd.Flags().Changed("option") {
				req.Options = options
			}
			if cmd.Flags().Changed("duration") {
				req.DurationMinutes = duration
			}

			post, err := client.UpdatePost(id, req)
			if err != nil {
				return err
			}

			out.Success("Post updated")
			out.Print(postHeaders, [][]string{postRow(post)}, post)
			return nil
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringVar(&at, "at", "", "New publish time in RFC 3339")
	cmd.Flags().DurationVar(&in, "in", 0, "New publish time as duration from now")
	cmd.Flags().StringSliceVar(&options, "option", nil, "Poll option (repeatable)")
	cmd.Flags().IntVar(&duration, "duration", 0, "Poll duration in minutes")
	cmd.Flags().BoolVar(&reset, "reset", false, "Reset a failed post back to pending")

	return cmd
}

func newPostCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a pending post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			changed, err := clientFn().CancelPost(id)
			if err != nil {
				return err
			}

			out := outputFn()
			if !changed {
				out.Success(fmt.Sprintf("Post already cancelled: %d", id))
				return nil
			}
			out.Success(fmt.Sprintf("Post cancelled: %d", id))
			return nil
		},
	}
}

func newPostDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a pending or cancelled post permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := clientFn().DeletePost(id); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Post deleted: %d", id))
			return nil
		},
	}
}

func newPostStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show post counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stats, err := client.Stats()
			if err != nil {
				return err
			}

			out.Print(
				[]string{"PENDING", "POSTED", "FAILED", "CANCELLED", "TOTAL"},
				[][]string{{
					strconv.Itoa(stats.Pending), strconv.Itoa(stats.Posted),
					strconv.Itoa(stats.Failed), strconv.Itoa(stats.Cancelled),
					strconv.Itoa(stats.Total),
				}},
				stats,
			)
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q", raw)
	}
	return id, nil
}

// resolveTime выбирает время публикации из --at или --in.
func resolveTime(at string, in time.Duration, now time.Time) (time.Time, error) {
	switch {
	case at != "" && in > 0:
		return time.Time{}, errors.New("use either --at or --in, not both")
	case at != "":
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --at %q: %w", at, err)
		}
		return t, nil
	case in > 0:
		return now.Add(in), nil
	default:
		return time.Time{}, errors.New("publish time is required: set --at or --in")
	}
}
