package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/coffee-cart/internal/adapter/handler"
	"github.com/rl1809/coffee-cart/internal/core/domain"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "cart gRPC address")
	shoppers := flag.Int("shoppers", 20, "concurrent simulated sessions")
	productID := flag.Int("product", 1, "product id every shopper adds")
	flag.Parse()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	client := handler.NewCartServiceClient(conn)

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent shoppers
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *shoppers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := shop(ctx, client, uuid.NewString(), *productID); err != nil {
				log.Printf("shopper %d: %v", n, err)
				failCount.Add(1)
				return
			}
			successCount.Add(1)
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("=== Cart Simulation Results ===")
	fmt.Printf("Shoppers:     %d\n", *shoppers)
	fmt.Printf("Succeeded:    %d\n", successCount.Load())
	fmt.Printf("Failed:       %d\n", failCount.Load())
	fmt.Printf("Elapsed:      %v\n", elapsed)
}

// shop walks one session through add, merge, update, payment, address
// and removal, checking the cart after each step.
func shop(ctx context.Context, client *handler.CartServiceClient, session string, productID int) error {
	if _, err := client.AddProduct(ctx, &handler.ProductRequest{SessionID: session, ProductID: productID, Amount: 2}); err != nil {
		return fmt.Errorf("add: %w", err)
	}

	resp, err := client.AddProduct(ctx, &handler.ProductRequest{SessionID: session, ProductID: productID, Amount: 3})
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if resp.ItemCount != 5 {
		return fmt.Errorf("merge: expected 5 items, got %d", resp.ItemCount)
	}

	resp, err = client.UpdateProduct(ctx, &handler.ProductRequest{SessionID: session, ProductID: productID, Amount: 1})
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if resp.ItemCount != 1 {
		return fmt.Errorf("update: expected 1 item, got %d", resp.ItemCount)
	}

	if _, err := client.SelectPayment(ctx, &handler.PaymentRequest{SessionID: session, Method: domain.PaymentDebitCard}); err != nil {
		return fmt.Errorf("payment: %w", err)
	}

	addr := domain.Address{PostalCode: "01310-100", Street: "Av. Paulista", Number: "1000", District: "Bela Vista", City: "São Paulo", State: "SP"}
	if _, err := client.AddAddress(ctx, &handler.AddressRequest{SessionID: session, Address: addr}); err != nil {
		return fmt.Errorf("address: %w", err)
	}

	resp, err = client.RemoveProduct(ctx, &handler.ProductRequest{SessionID: session, ProductID: productID})
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if len(resp.Cart.Items) != 0 {
		return fmt.Errorf("remove: expected empty cart, got %d lines", len(resp.Cart.Items))
	}
	if resp.Cart.Payment != domain.PaymentDebitCard {
		return fmt.Errorf("remove: payment lost")
	}

	return nil
}
