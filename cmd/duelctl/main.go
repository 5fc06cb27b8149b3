// Command duelctl drives a duel server from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethduel/duel-server-go/internal/client"
	"github.com/ethduel/duel-server-go/internal/config"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/mirror"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage: duelctl [flags] <command> [args]

commands:
  create <deck>                      create a game
  join <game> <deck>                 take the second seat
  start <game>                       deal opening hands
  draw <game>                        draw to start your turn
  play <game> <hand-index>           play a card from hand
  stake <game> <instance> <amount>   stake ETH on a yield card
  deposit <game> <amount>            move ETH to cold storage
  withdraw <game> <amount>           move ETH out of cold storage
  end <game>                         end your turn
  state <game>                       show the game state
  hand <game> [player]               show a hand
  battlefield <game> [player]        show a battlefield
  card <instance>                    show a card instance
  games                              list hosted games
  watch <game>                       follow a game until interrupted

flags:
`

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("DUEL_ADDR", "localhost:50051"), "server gRPC address")
	player := flag.String("player", os.Getenv("DUEL_PLAYER"), "acting wallet address")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	retries := flag.Int("retries", 3, "attempts for retryable failures")
	all := flag.Bool("all", false, "include finished games when listing")
	verbose := flag.Bool("v", false, "verbose logging")
	configPath := flag.String("config", "", "server config file; its mirror section tunes watch")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	mirrorCfg := mirror.DefaultConfig()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		mirrorCfg = cfg.Mirror
	}

	c, err := client.Dial(*addr, logger)
	if err != nil {
		fatal(err)
	}
	defer c.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := &cli{
		client:  c,
		logger:  logger,
		player:  *player,
		timeout: *timeout,
		retries: *retries,
		all:     *all,
		mirror:  mirrorCfg,
	}
	if err := cli.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fatal(err)
	}
}

type cli struct {
	client  *client.Client
	logger  *zap.Logger
	player  string
	timeout time.Duration
	retries int
	all     bool
	mirror  mirror.Config
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "create":
		if err := need(args, 1); err != nil {
			return err
		}
		return c.submit(ctx, gateway.Action{Kind: gateway.KindCreateGame, DeckID: args[0]})
	case "join":
		if err := need(args, 2); err != nil {
			return err
		}
		return c.submit(ctx, gateway.Action{Kind: gateway.KindJoinGame, GameID: args[0], DeckID: args[1]})
	case "start":
		return c.simple(ctx, gateway.KindStartGame, args)
	case "draw":
		return c.simple(ctx, gateway.KindDrawToStartTurn, args)
	case "end":
		return c.simple(ctx, gateway.KindEndTurn, args)
	case "play":
		if err := need(args, 2); err != nil {
			return err
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid hand index %q", args[1])
		}
		return c.submit(ctx, gateway.Action{Kind: gateway.KindPlayCard, GameID: args[0], HandIndex: idx})
	case "stake":
		if err := need(args, 3); err != nil {
			return err
		}
		instance, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid instance id %q", args[1])
		}
		amount, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[2])
		}
		return c.submit(ctx, gateway.Action{Kind: gateway.KindStakeETH, GameID: args[0], InstanceID: instance, Amount: amount})
	case "deposit", "withdraw":
		if err := need(args, 2); err != nil {
			return err
		}
		amount, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[1])
		}
		kind := gateway.KindDeposit
		if cmd == "withdraw" {
			kind = gateway.KindWithdraw
		}
		return c.submit(ctx, gateway.Action{Kind: kind, GameID: args[0], Amount: amount})
	case "state":
		if err := need(args, 1); err != nil {
			return err
		}
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		state, err := c.client.GetGameState(rctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(state)
	case "hand", "battlefield":
		if err := need(args, 1); err != nil {
			return err
		}
		who := c.player
		if len(args) > 1 {
			who = args[1]
		}
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		query := c.client.GetPlayerHand
		if cmd == "battlefield" {
			query = c.client.GetPlayerBattlefield
		}
		cards, err := query(rctx, args[0], who)
		if err != nil {
			return err
		}
		return printJSON(cards)
	case "card":
		if err := need(args, 1); err != nil {
			return err
		}
		instance, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid instance id %q", args[0])
		}
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		card, err := c.client.GetCardInstance(rctx, instance)
		if err != nil {
			return err
		}
		return printJSON(card)
	case "games":
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		games, err := c.client.ListGames(rctx, c.all)
		if err != nil {
			return err
		}
		return printJSON(games)
	case "watch":
		if err := need(args, 1); err != nil {
			return err
		}
		return c.watch(ctx, args[0])
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) simple(ctx context.Context, kind gateway.Kind, args []string) error {
	if err := need(args, 1); err != nil {
		return err
	}
	return c.submit(ctx, gateway.Action{Kind: kind, GameID: args[0]})
}

// submit sends a, retrying transient failures with a growing pause.
func (c *cli) submit(ctx context.Context, a gateway.Action) error {
	if c.player == "" {
		return errors.New("no player address: set -player or DUEL_PLAYER")
	}
	a.Actor = c.player

	backoff := 200 * time.Millisecond
	for attempt := 1; ; attempt++ {
		rctx, cancel := context.WithTimeout(ctx, c.timeout)
		receipt, err := c.client.Submit(rctx, a)
		cancel()
		if err == nil {
			return printJSON(receipt)
		}
		if !gateway.IsRetryable(err) || attempt >= c.retries {
			return err
		}
		c.logger.Debug("retrying action", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// watch mirrors a game and prints every new view until interrupted.
func (c *cli) watch(ctx context.Context, gameID string) error {
	var lastSeq uint64
	m := mirror.New(c.logger, c.client, gameID, c.mirror,
		mirror.WithEvents(c.client),
		mirror.WithOnChange(func(v *mirror.View) {
			if v.Seq() == lastSeq {
				return
			}
			lastSeq = v.Seq()
			fmt.Printf("seq=%d status=%s turn=%d current=%s\n",
				v.Seq(), v.State.Status, v.State.TurnNumber, v.State.CurrentTurn)
			for _, seat := range []string{seatName(v, 1), seatName(v, 2)} {
				if seat == "" {
					continue
				}
				p := v.State.Seat(seat)
				fmt.Printf("  %s eth=%d cold=%d hand=%d battlefield=%d deck=%d\n",
					seat, p.ETH, p.ColdStorage, p.HandSize, p.BattlefieldSize, p.DeckRemaining)
			}
			if v.State.IsFinished {
				fmt.Printf("  winner: %s\n", v.State.Winner)
			}
		}),
	)
	err := m.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func seatName(v *mirror.View, seat int) string {
	if v.State == nil {
		return ""
	}
	if seat == 1 && v.State.Player1 != nil {
		return v.State.Player1.Player
	}
	if seat == 2 && v.State.Player2 != nil {
		return v.State.Player2.Player
	}
	return ""
}

func need(args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "duelctl: %v\n", err)
	os.Exit(1)
}
