package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"campusconnect/internal/client"
	"campusconnect/internal/dto"
)

// eventFlags are the editable event fields shared by create and update.
type eventFlags struct {
	title       string
	club        string
	category    string
	description string
	date        string
	deadline    string
	endDate     string
	link        string
	form        string
	image       string
	imageFile   string
}

func (f *eventFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.title, "title", "", "event title")
	fs.StringVar(&f.club, "club", "", "organizing club")
	fs.StringVar(&f.category, "category", "", "category, e.g. Hackathon or Workshop")
	fs.StringVar(&f.description, "description", "", "free text description")
	fs.StringVar(&f.date, "date", "", "event date, YYYY-MM-DD")
	fs.StringVar(&f.deadline, "deadline", "", "registration deadline")
	fs.StringVar(&f.endDate, "end-date", "", "last day of a multi-day event")
	fs.StringVar(&f.link, "link", "", "registration link")
	fs.StringVar(&f.form, "form", "", "Google Form link")
	fs.StringVar(&f.image, "image", "", "poster URL")
	fs.StringVar(&f.imageFile, "image-file", "", "local poster to upload")
}

// resolveImage uploads --image-file when given and returns the poster URL.
func (f *eventFlags) resolveImage(cmd *cobra.Command, c *client.Client) error {
	if f.imageFile == "" {
		return nil
	}
	url, err := c.UploadImage(cmd.Context(), f.imageFile)
	if err != nil {
		return fmt.Errorf("upload %s: %w", f.imageFile, err)
	}
	f.image = url
	return nil
}

func (f *eventFlags) createRequest() dto.CreateEventRequest {
	return dto.CreateEventRequest{
		Title:            f.title,
		Club:             f.club,
		Category:         f.category,
		Description:      f.description,
		Date:             f.date,
		Deadline:         f.deadline,
		EndDate:          f.endDate,
		RegistrationLink: f.link,
		GoogleForm:       f.form,
		Image:            f.image,
	}
}

// patch holds only the flags given on the command line.
func (f *eventFlags) patch(cmd *cobra.Command) (dto.UpdateEventRequest, bool) {
	var req dto.UpdateEventRequest
	changed := false
	set := func(name string, dst **string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = &v
			changed = true
		}
	}
	set("title", &req.Title, f.title)
	set("club", &req.Club, f.club)
	set("category", &req.Category, f.category)
	set("description", &req.Description, f.description)
	set("date", &req.Date, f.date)
	set("deadline", &req.Deadline, f.deadline)
	set("end-date", &req.EndDate, f.endDate)
	set("link", &req.RegistrationLink, f.link)
	set("form", &req.GoogleForm, f.form)
	set("image", &req.Image, f.image)
	if f.imageFile != "" {
		req.Image = &f.image
		changed = true
	}
	return req, changed
}

func newEventCreateCmd(opts *rootOptions) *cobra.Command {
	f := &eventFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add an event (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := f.resolveImage(cmd, c); err != nil {
				return err
			}
			e, err := c.CreateEvent(cmd.Context(), f.createRequest())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", e.Title, e.ID.Hex())
			return nil
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newEventUpdateCmd(opts *rootOptions) *cobra.Command {
	f := &eventFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of an event (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := f.resolveImage(cmd, c); err != nil {
				return err
			}
			req, changed := f.patch(cmd)
			if !changed {
				return errors.New("nothing to update, pass at least one field flag")
			}
			e, err := c.UpdateEvent(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", e.Title, e.ID.Hex())
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newEventDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an event (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.DeleteEvent(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newEventUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a poster image and print its URL (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			url, err := c.UploadImage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}
