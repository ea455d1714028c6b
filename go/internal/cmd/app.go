package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mcdev12/bidwatch/go/clients/auction_api_client"
	"github.com/mcdev12/bidwatch/go/internal/bidding"
	"github.com/mcdev12/bidwatch/go/internal/models"
	"github.com/mcdev12/bidwatch/go/internal/poll"
	"github.com/mcdev12/bidwatch/go/internal/view"
)

// app is the terminal front end: a command loop plus a renderer fed by
// view-state changes. All auction state flows through the view; the
// loop never caches server data of its own.
type app struct {
	client *auction_api_client.AuctionAPIClient
	state  *view.State
	poller *poll.Controller
	bids   *bidding.Controller
}

func newApp(client *auction_api_client.AuctionAPIClient, state *view.State, poller *poll.Controller, bids *bidding.Controller) *app {
	return &app{
		client: client,
		state:  state,
		poller: poller,
		bids:   bids,
	}
}

// bindRenderer prints the slices of state a human watching the auction
// cares about as they change.
func (a *app) bindRenderer() {
	a.state.Subscribe(func(c view.Change) {
		switch c {
		case view.ChangeStatus:
			fmt.Printf("! %s\n", a.state.Status())
		case view.ChangeDetail:
			a.renderDetail()
		case view.ChangeCountdown:
			if a.state.Detail() != nil {
				fmt.Printf("  time left: %s\n", a.state.Countdown())
			}
		}
	})
}

func (a *app) renderDetail() {
	detail := a.state.Detail()
	if detail == nil {
		return
	}
	winner := "-"
	if detail.CurrentWinner != nil {
		winner = strconv.FormatInt(*detail.CurrentWinner, 10)
	}
	fmt.Printf("[%d] %s  price=%.2f  winner=%s  min_increment=%.2f  bids=%d\n",
		detail.ID, detail.ItemName, detail.CurrentPrice, winner, detail.MinIncrement, len(a.state.Bids()))
}

func (a *app) run(ctx context.Context) {
	a.refreshUsers(ctx)
	fmt.Println("bidwatch ready. Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if !a.dispatch(ctx, fields[0], fields[1:]) {
			return
		}
	}
}

// dispatch runs one command; returns false to quit.
func (a *app) dispatch(ctx context.Context, cmd string, args []string) bool {
	switch cmd {
	case "help":
		printHelp()
	case "users":
		a.refreshUsers(ctx)
		for _, u := range a.state.Users() {
			fmt.Printf("  user %d: %s\n", u.ID, u.Name)
		}
	case "auctions":
		a.printAuctions(a.state.Auctions())
	case "all":
		auctions, err := a.client.ListAllAuctions(ctx)
		if err != nil {
			fmt.Println("! " + err.Error())
			return true
		}
		a.printAuctions(auctions)
	case "watch":
		id, ok := parseID(args)
		if !ok {
			fmt.Println("usage: watch <auction-id>")
			return true
		}
		if err := a.poller.FocusAuction(ctx, id); err != nil {
			fmt.Println("! " + err.Error())
		}
	case "unwatch":
		_ = a.poller.FocusAuction(ctx, 0)
	case "user":
		id, ok := parseID(args)
		if !ok {
			fmt.Println("usage: user <user-id>")
			return true
		}
		a.state.SetSelectedUser(id)
	case "amount":
		if len(args) != 1 {
			fmt.Println("usage: amount <value>")
			return true
		}
		a.state.SetEnteredAmount(args[0])
	case "bid":
		// Submission result lands on the status line via the renderer.
		_ = a.bids.Submit(ctx)
	case "newuser":
		if len(args) == 0 {
			fmt.Println("usage: newuser <name>")
			return true
		}
		resp, err := a.client.CreateUser(ctx, strings.Join(args, " "))
		if err != nil {
			fmt.Println("! " + err.Error())
			return true
		}
		fmt.Printf("created user %d (%s)\n", resp.UserID, resp.Name)
		a.refreshUsers(ctx)
	case "newauction":
		a.createAuction(ctx, args)
	case "close":
		id, ok := parseID(args)
		if !ok {
			fmt.Println("usage: close <auction-id>")
			return true
		}
		if err := a.client.CloseAuction(ctx, id); err != nil {
			fmt.Println("! " + err.Error())
			return true
		}
		fmt.Printf("closed auction %d\n", id)
	case "quit", "exit":
		return false
	default:
		fmt.Println("unknown command, try 'help'")
	}
	return true
}

func (a *app) createAuction(ctx context.Context, args []string) {
	if len(args) != 4 {
		fmt.Println("usage: newauction <item-name> <start-price> <min-increment> <duration-seconds>")
		return
	}
	startPrice, err1 := strconv.ParseFloat(args[1], 64)
	minIncrement, err2 := strconv.ParseFloat(args[2], 64)
	duration, err3 := strconv.ParseInt(args[3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		fmt.Println("usage: newauction <item-name> <start-price> <min-increment> <duration-seconds>")
		return
	}

	resp, err := a.client.CreateAuction(ctx, auction_api_client.CreateAuctionRequest{
		ItemName:        args[0],
		StartPrice:      startPrice,
		MinIncrement:    minIncrement,
		DurationSeconds: duration,
	})
	if err != nil {
		fmt.Println("! " + err.Error())
		return
	}
	fmt.Printf("created auction %d (%s)\n", resp.AuctionID, resp.ItemName)
}

func (a *app) refreshUsers(ctx context.Context) {
	users, err := a.client.ListUsers(ctx)
	if err != nil {
		fmt.Println("! failed to load users: " + err.Error())
		return
	}
	a.state.SetUsers(users)
}

func (a *app) printAuctions(auctions []models.AuctionSummary) {
	now := a.poller.Now()
	for _, auction := range auctions {
		status := "Closed"
		if auction.DisplayActive(now) {
			status = "Active"
		}
		fmt.Printf("  [%d] %s  price=%.2f  %s\n", auction.ID, auction.ItemName, auction.CurrentPrice, status)
	}
	if len(auctions) == 0 {
		fmt.Println("  (no auctions)")
	}
}

func parseID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func printHelp() {
	fmt.Print(`commands:
  users                                          list users
  auctions                                       list active auctions
  all                                            list every auction
  watch <auction-id>                             follow an auction live
  unwatch                                        stop following
  user <user-id>                                 select the bidding user
  amount <value>                                 set the pending bid amount
  bid                                            submit the pending bid
  newuser <name>                                 create a user
  newauction <item> <start> <increment> <secs>   create an auction
  close <auction-id>                             force-close an auction
  quit
`)
}
