package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"customer-address-manager/internal/domain"
	customersvc "customer-address-manager/internal/service/customer"
)

type CustomerWriter interface {
	Create(ctx context.Context, in customersvc.Input) (*domain.Customer, error)
}

// CSVImporter reads customer exports and creates one customer per group of
// rows. A row with a phone number starts a customer; following rows without
// one add more addresses to it.
type CSVImporter struct {
	reader    *csv.Reader
	customers CustomerWriter
}

func NewCSVImporter(r io.Reader, customers CustomerWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:    csvr,
		customers: customers,
	}
}

// Run creates every customer in the file and returns how many were created.
// It stops at the first customer the service rejects.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["phone_number"]; !ok {
		return 0, errors.New("read headers: phone_number column is required")
	}

	var (
		current  *customersvc.Input
		imported int
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		in, addr, err := parseRow(record, index)
		if err != nil {
			return imported, err
		}

		if in != nil {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current = in
		}
		if addr == nil {
			continue
		}
		if current == nil {
			return imported, errors.New("address row before any customer row")
		}
		current.Addresses = append(current.Addresses, *addr)
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, in *customersvc.Input) error {
	if _, err := i.customers.Create(ctx, *in); err != nil {
		return fmt.Errorf("create customer %q: %w", in.PhoneNumber, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow returns the customer the row starts, if any, and the address it
// carries, if any. Blank rows yield neither.
func parseRow(record []string, index map[string]int) (*customersvc.Input, *customersvc.AddressInput, error) {
	var in *customersvc.Input
	if phone := pick(record, index, "phone_number"); phone != "" {
		in = &customersvc.Input{
			FirstName:   pick(record, index, "first_name"),
			LastName:    pick(record, index, "last_name"),
			PhoneNumber: phone,
			Email:       pick(record, index, "email"),
		}
	}

	addr := customersvc.AddressInput{
		AddressLine1: pick(record, index, "address_line1"),
		AddressLine2: pick(record, index, "address_line2"),
		City:         pick(record, index, "city"),
		State:        pick(record, index, "state"),
		PinCode:      pick(record, index, "pin_code"),
		Country:      pick(record, index, "country"),
	}
	if raw := pick(record, index, "is_primary"); raw != "" {
		primary, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid is_primary %q: %w", raw, err)
		}
		addr.IsPrimary = primary
	}
	if addr.AddressLine1 == "" && addr.City == "" && addr.PinCode == "" {
		return in, nil, nil
	}
	return in, &addr, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
