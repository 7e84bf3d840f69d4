package rv

import (
	"errors"
	"fmt"
	"os"

	"github.com/Mmx233/rvlink/client"
	"github.com/Mmx233/rvlink/launcher"
	"github.com/Mmx233/rvlink/protocol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
)

var (
	loadFlags clientFlags
	loadArgs  struct {
		representations []string
		name            string
		file            string
		project         string
		folder          string
		task            string
		launch          bool
	}
	LoadCmd = &cobra.Command{
		Use:   "load",
		Short: "Open representations in the review application",
		Long: "Open representations in the review application, starting it with the\n" +
			"configured launcher first when --launch is set and nothing is listening.",
		Args: cobra.NoArgs,
		RunE: runLoad,
	}
)

func init() {
	fs := LoadCmd.Flags()
	loadFlags.AddFlags(fs)
	fs.StringSliceVarP(&loadArgs.representations, "representation", "r", nil, "representation id, repeatable")
	fs.StringVar(&loadArgs.name, "object-name", "", "object name for the given representations")
	fs.StringVarP(&loadArgs.file, "file", "f", "", "JSON or JSONC file with an array of load requests")
	fs.StringVar(&loadArgs.project, "project", "", "project name, defaults to dispatch.project")
	fs.StringVar(&loadArgs.folder, "folder", "", "folder path used when launching")
	fs.StringVar(&loadArgs.task, "task", "", "task name used when launching")
	fs.BoolVar(&loadArgs.launch, "launch", false, "start the review application if it is not running")
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(&loadFlags)
	if err != nil {
		return err
	}

	requests := make([]protocol.LoadRequest, 0, len(loadArgs.representations))
	for _, id := range loadArgs.representations {
		requests = append(requests, protocol.LoadRequest{ObjectName: loadArgs.name, Representation: id})
	}
	if loadArgs.file != "" {
		batch, err := readBatch(loadArgs.file)
		if err != nil {
			return err
		}
		requests = append(requests, batch...)
	}
	if len(requests) == 0 {
		return errors.New("nothing to load, pass --representation or --file")
	}

	project := loadArgs.project
	if project == "" {
		project = cfg.Dispatch.Project
	}

	logger := log.With().Str("com", "load-cmd").Logger()
	var l client.Launcher
	if loadArgs.launch {
		l = launcher.New(cfg.Launcher, logger)
	}

	ctx, cancel := signalContext()
	defer cancel()

	player := client.NewPlayer(cfg.Client, l, logger)
	err = player.Play(ctx, client.PlayRequest{
		LaunchContext: client.LaunchContext{
			Project: project,
			Folder:  loadArgs.folder,
			Task:    loadArgs.task,
		},
		Representations: requests,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "requested %d representation(s)\n", len(requests))
	return nil
}

// readBatch reads a load batch, comments and trailing commas allowed.
func readBatch(path string) ([]protocol.LoadRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	requests, err := protocol.DecodeLoadRequests(jsonc.ToJSON(data))
	if err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}
	for i, req := range requests {
		if req.Representation == "" {
			return nil, fmt.Errorf("parse batch file %s: item %d has no representation", path, i)
		}
	}
	return requests, nil
}
