package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"captioncraft/caption"
	"captioncraft/intake"
	"captioncraft/session"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
)

type captionFlags struct {
	tone      string
	copy      bool
	json      bool
	noHistory bool
}

func newCaptionCmd(g *globalFlags) *cobra.Command {
	f := &captionFlags{}

	cmd := &cobra.Command{
		Use:   "caption [image]",
		Short: "Generate a caption for one image",
		Long: `Generate a caption for one image and print it.

Without an image argument, and when run in a terminal, a file picker and a
tone selector are shown.

Examples:
  captioncraft caption beach.jpg
  captioncraft caption beach.jpg --tone poetic --copy
  captioncraft caption beach.jpg --direct --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCaption(cmd, g, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.tone, "tone", "t", "", "caption tone: casual, professional, witty, poetic, instagram")
	cmd.Flags().BoolVar(&f.copy, "copy", false, "copy the caption to the clipboard")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "do not save the caption to history")
	return cmd
}

type captionResult struct {
	Caption string       `json:"caption"`
	Tone    caption.Tone `json:"tone"`
}

func runCaption(cmd *cobra.Command, g *globalFlags, f *captionFlags, args []string) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger, _, err := newLogger(cfg, false)
	if err != nil {
		return err
	}

	interactive := isInteractive() && !f.json

	tone := cfg.Tone()
	if f.tone != "" {
		if tone, err = caption.ParseTone(f.tone); err != nil {
			return err
		}
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		if !interactive {
			return errors.New("an image path is required when not running in a terminal")
		}
		path, tone, err = pickImageAndTone(tone, f.tone == "")
		if errors.Is(err, huh.ErrUserAborted) {
			printInfo(errOut, "Cancelled.")
			return nil
		}
		if err != nil {
			return err
		}
	}

	img, err := intake.Load(path)
	if err != nil {
		return err
	}
	if err := caption.ValidateUpload(img.MediaType, img.Size()); err != nil {
		printWarning(errOut, "%s", err.Error())
	}

	captioner, source, err := newCaptioner(cfg, logger, nil)
	if err != nil {
		return err
	}
	logger.Debug("captioning", "image", img.Name, "tone", tone, "source", source)

	var hs session.HistoryStore
	if !f.noHistory {
		history, closer, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()
		hs = history
	}

	ctrl := session.New(captioner, hs, session.WithLogger(logger), session.WithTone(tone))
	ticket := ctrl.SelectImage(img)
	ctrl.ApplyPreview(ticket, intake.Preview(img))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if interactive {
		err = spinner.New().
			Title("Crafting your caption...").
			Action(func() {
				ctrl.Generate(ctx)
			}).
			Run()
		if err != nil {
			return err
		}
	} else {
		ctrl.Generate(ctx)
	}

	state := ctrl.State()
	if state.Error != "" {
		return errors.New(state.Error)
	}

	switch {
	case f.json:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(captionResult{Caption: state.Caption, Tone: tone}); err != nil {
			return err
		}
	case interactive:
		fmt.Fprintln(out, boxStyle.Render(fmt.Sprintf("%s %s\n\n%s", tone.Emoji(), titleStyle.Render(tone.Label()), state.Caption)))
	default:
		fmt.Fprintln(out, state.Caption)
	}

	if f.copy {
		if err := clipboard.WriteAll(state.Caption); err != nil {
			printWarning(errOut, "Copy failed: %v", err)
		} else {
			printSuccess(errOut, "Copied!")
		}
	}
	return nil
}

// pickImageAndTone asks for an image and, when askTone is set, a tone
func pickImageAndTone(tone caption.Tone, askTone bool) (string, caption.Tone, error) {
	var path string
	startDir, _ := os.Getwd()

	filePicker := huh.NewFilePicker().
		Title("Select an image").
		Description("JPG, PNG or WebP up to 25 MB").
		Picking(true).
		CurrentDirectory(startDir).
		ShowHidden(false).
		ShowPermissions(false).
		ShowSize(true).
		Height(15).
		AllowedTypes(caption.AllowedExtensions).
		Value(&path)

	groups := []*huh.Group{huh.NewGroup(filePicker)}

	if askTone {
		options := make([]huh.Option[caption.Tone], 0, len(caption.Tones))
		for _, t := range caption.Tones {
			options = append(options, huh.NewOption(t.Emoji()+" "+t.Label(), t))
		}
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[caption.Tone]().
				Title("Pick a tone").
				Options(options...).
				Value(&tone),
		))
	}

	err := huh.NewForm(groups...).
		WithTheme(huh.ThemeCatppuccin()).
		Run()
	return path, tone, err
}
