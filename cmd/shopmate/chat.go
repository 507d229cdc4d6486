package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/shopmate/internal/assistant"
	"github.com/m-mizutani/shopmate/internal/catalog"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Chat with the assistant in the terminal",
		Flags: assistantFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, release, err := newAssistant(ctx, cmd, slog.Default())
			if err != nil {
				return err
			}
			defer release()

			conv := a.Start(ctx)
			defer func() { _ = a.Delete(context.Background(), conv.ID()) }()

			return runChat(ctx, conv, os.Stdin, os.Stdout)
		},
	}
}

const chatHelp = "Commands: /cart shows the cart, /checkout starts checkout, /quit exits."

// runChat reads user lines from in until EOF or /quit.
func runChat(ctx context.Context, conv *assistant.Conversation, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Welcome to shopmate! Ask me about our products.")
	fmt.Fprintln(out, chatHelp)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue

		case "/quit", "/exit":
			return nil

		case "/help":
			fmt.Fprintln(out, chatHelp)

		case "/cart":
			cart, err := conv.Cart(ctx)
			if err != nil {
				return err
			}
			printCart(out, cart)

		case "/checkout":
			reply, err := conv.StartCheckout(ctx)
			if errors.Is(err, assistant.ErrEmptyCart) {
				fmt.Fprintln(out, "Your cart is empty. Add something first.")
				continue
			}
			if err != nil {
				return err
			}
			printCart(out, reply.Cart)
			fmt.Fprintln(out, reply.Text)

		default:
			reply, err := conv.Send(ctx, line)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			fmt.Fprintln(out, reply.Text)
			if reply.Transaction != nil {
				fmt.Fprintf(out, "Order %v placed.\n", reply.Transaction["id"])
			}
		}
	}
}

func printCart(out io.Writer, cart *catalog.Cart) {
	if cart.IsEmpty() {
		fmt.Fprintln(out, "Your cart is empty.")
		return
	}
	for _, item := range cart.Items {
		fmt.Fprintf(out, "  %d x %s  $%.2f\n", item.Quantity, item.Name, item.Price*float64(item.Quantity))
	}
	fmt.Fprintf(out, "  Total: $%.2f\n", cart.Total)
}
