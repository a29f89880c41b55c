package cmd

import (
	"bufio"
	"encoding/json"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/davewx7/Wizard-Tactics/internal/ai"
	"github.com/davewx7/Wizard-Tactics/internal/game"
	"github.com/davewx7/Wizard-Tactics/internal/replay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a match over stdin/stdout against the scripted opponent",
	Long: `Runs one authoritative match. Client actions are read as JSON messages,
one per line, on stdin; every notification the engine queues is written as a
JSON line on stdout. Player 0 is the stdin client, player 1 the scripted
opponent. With --log the accepted actions are recorded for later replay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, _ := cmd.Flags().GetInt64("seed")
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		name, _ := cmd.Flags().GetString("name")
		deck, _ := cmd.Flags().GetString("ai_deck")
		logPath, _ := cmd.Flags().GetString("log")

		content, err := game.LoadContent(contentDir())
		if err != nil {
			return err
		}

		var store *replay.Store
		var matchID int64
		if logPath != "" {
			store, err = replay.Open(logPath)
			if err != nil {
				return err
			}
			defer store.Close()
			matchID, err = store.CreateMatch(seed)
			if err != nil {
				return err
			}
			log.Info().Int64("match", matchID).Str("store", logPath).Msg("logging match")
		}

		g := game.NewGame(content, rand.New(rand.NewSource(seed)))
		if store != nil {
			g.SetRecorder(func(nplayer int, msg *game.Message) {
				if err := store.Append(matchID, nplayer, msg); err != nil {
					log.Warn().Err(err).Msg("failed to log action")
				}
			})
		}
		g.AddPlayer(name)

		opponent, err := ai.NewPlayer(1, deck, aiResourceGain(), "")
		if err != nil {
			return err
		}
		g.AddAIPlayer("opponent", opponent)

		out := json.NewEncoder(os.Stdout)
		flush := func() {
			for _, o := range g.SwapOutgoing() {
				if len(o.Recipients) > 0 && !containsInt(o.Recipients, 0) {
					continue
				}
				if err := out.Encode(o.Body); err != nil {
					log.Warn().Err(err).Msg("failed to write notification")
				}
			}
		}

		setup := game.Message{Type: "setup"}
		if err := g.HandleMessage(0, &setup); err != nil {
			return err
		}
		flush()

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var msg game.Message
			if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
				log.Warn().Err(err).Msg("malformed message")
				continue
			}
			if err := g.HandleMessage(0, &msg); err != nil {
				log.Info().Err(err).Msg("message rejected")
			}
			flush()
		}
		return scanner.Err()
	},
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// aiResourceGain is the scripted opponent's default income: steady gold
// and food.
func aiResourceGain() []int {
	gain := make([]int, game.NumResources)
	gain[0] = 2
	gain[1] = 2
	return gain
}

func init() {
	serveCmd.Flags().Int64("seed", 0, "RNG seed (0 = time-based)")
	serveCmd.Flags().String("name", "player", "display name for the stdin player")
	serveCmd.Flags().String("ai_deck", "", "deck string for the scripted opponent")
	serveCmd.Flags().String("log", "", "path to a replay store to record the match")
	rootCmd.AddCommand(serveCmd)
}
