package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/campusdesk/cd-backend/internal/config"
	"github.com/campusdesk/cd-backend/internal/database"
	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"gopkg.in/yaml.v3"
)

type SeedData struct {
	Services     []Service     `yaml:"services"`
	Users        []User        `yaml:"users"`
	RequestTypes []RequestType `yaml:"request_types"`
	Resources    []Resource    `yaml:"resources"`
}

type Service struct {
	Name      string `yaml:"name"`
	HeadEmail string `yaml:"head_email"`
}

type User struct {
	Email       string  `yaml:"email"`
	DisplayName string  `yaml:"display_name"`
	Role        string  `yaml:"role"`
	Service     *string `yaml:"service,omitempty"`
}

type Field struct {
	Name    string   `yaml:"name"`
	Label   string   `yaml:"label"`
	Type    string   `yaml:"type"`
	Options []string `yaml:"options,omitempty"`
}

type RequestType struct {
	Title                string   `yaml:"title"`
	Category             string   `yaml:"category"`
	Workflow             []string `yaml:"workflow"`
	RequiredFields       []Field  `yaml:"required_fields"`
	AttachmentsRequired  bool     `yaml:"attachments_required"`
	AttachmentKinds      []string `yaml:"attachment_kinds,omitempty"`
	EstimatedProcessTime string   `yaml:"estimated_process_time"`
}

type Resource struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Capacity int    `yaml:"capacity"`
	Location string `yaml:"location"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return errors.New("command required")
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "seed":
		return seedCommand(args)
	case "nuke":
		return nukeCommand(args)
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func seedCommand(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fs.String("file", "", "YAML file to seed from")
	dir := fs.String("dir", "", "Directory of YAML files to seed from")
	dryRun := fs.Bool("dry-run", false, "Validate files without making database changes")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	files, err := resolveFiles(*file, *dir)
	if err != nil {
		return err
	}

	seedData, err := loadSeedData(files)
	if err != nil {
		return fmt.Errorf("failed to load seed data: %w", err)
	}

	if *dryRun {
		fmt.Println("dry run: validating data structure")
		return validateSeedData(seedData)
	}

	cfg := config.Load()
	seedDB, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("seedDB connection failed: %w", err)
	}
	defer seedDB.Close()

	fmt.Printf("seeding seedDB from %d file(s)\n", len(files))
	return applySeedData(context.Background(), seedDB, seedData)
}

func nukeCommand(args []string) error {
	fs := flag.NewFlagSet("nuke", flag.ExitOnError)
	force := fs.Bool("force", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if !*force && !confirmNuke() {
		fmt.Println("operation cancelled")
		return nil
	}

	return nukeDatabase()
}

func resolveFiles(file, dir string) ([]string, error) {
	if file == "" && dir == "" {
		return nil, errors.New("must specify either --file or --dir")
	}

	if file != "" && dir != "" {
		return nil, errors.New("cannot specify both --file and --dir")
	}

	if file != "" {
		return []string{file}, nil
	}

	return findYAMLFiles(dir)
}

func findYAMLFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && isYAMLFile(path) {
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no YAML files found in directory: %s", dir)
	}

	return files, nil
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func loadSeedData(files []string) (*SeedData, error) {
	combined := &SeedData{}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", file, err)
		}

		var fileData SeedData
		if err := yaml.Unmarshal(data, &fileData); err != nil {
			return nil, fmt.Errorf("failed to parse YAML in %s: %w", file, err)
		}

		combined.Services = append(combined.Services, fileData.Services...)
		combined.Users = append(combined.Users, fileData.Users...)
		combined.RequestTypes = append(combined.RequestTypes, fileData.RequestTypes...)
		combined.Resources = append(combined.Resources, fileData.Resources...)
	}

	return combined, nil
}

func validateSeedData(data *SeedData) error {
	fmt.Printf("  Services: %d\n", len(data.Services))
	fmt.Printf("  Users: %d\n", len(data.Users))
	fmt.Printf("  Request Types: %d\n", len(data.RequestTypes))
	fmt.Printf("  Resources: %d\n", len(data.Resources))

	serviceNames := make(map[string]bool)
	for _, s := range data.Services {
		serviceNames[s.Name] = true
	}
	for _, rt := range data.RequestTypes {
		for _, step := range rt.Workflow {
			if !serviceNames[step] {
				return fmt.Errorf("request type %q references unknown service %q", rt.Title, step)
			}
		}
		if len(rt.Workflow) == 0 {
			return fmt.Errorf("request type %q has an empty workflow", rt.Title)
		}
	}
	for _, u := range data.Users {
		if u.Service != nil && !serviceNames[*u.Service] {
			return fmt.Errorf("user %q references unknown service %q", u.Email, *u.Service)
		}
	}

	fmt.Println("data structure is valid")
	return nil
}

func applySeedData(ctx context.Context, db *database.Database, data *SeedData) error {
	if err := validateSeedData(data); err != nil {
		return err
	}

	st := db.Store()

	// IDs are assigned up front so services and users can reference each
	// other by name/email regardless of insert order
	serviceIDs := make(map[string]uuid.UUID, len(data.Services))
	for _, s := range data.Services {
		serviceIDs[s.Name] = uuid.New()
	}
	userIDs := make(map[string]uuid.UUID, len(data.Users))
	for _, u := range data.Users {
		userIDs[u.Email] = uuid.New()
	}

	for _, s := range data.Services {
		headID, ok := userIDs[s.HeadEmail]
		if !ok {
			return fmt.Errorf("service %q head %q is not among seeded users", s.Name, s.HeadEmail)
		}
		if err := st.CreateService(ctx, &domain.Service{
			ID:       serviceIDs[s.Name],
			Name:     s.Name,
			HeadID:   headID,
			IsActive: true,
		}); err != nil {
			return fmt.Errorf("failed to create service %s: %w", s.Name, err)
		}
		fmt.Printf("created service: %s\n", s.Name)
	}

	for _, u := range data.Users {
		user := &domain.User{
			ID:          userIDs[u.Email],
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Role:        domain.Role(u.Role),
			IsActive:    true,
		}
		if u.Service != nil {
			id := serviceIDs[*u.Service]
			user.ServiceID = &id
		}
		if err := st.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
		fmt.Printf("created user: %s\n", u.Email)
	}

	for _, rt := range data.RequestTypes {
		workflow := make([]uuid.UUID, len(rt.Workflow))
		for i, step := range rt.Workflow {
			workflow[i] = serviceIDs[step]
		}

		fields := make([]domain.FieldSpec, len(rt.RequiredFields))
		for i, f := range rt.RequiredFields {
			fields[i] = domain.FieldSpec{
				Name:    f.Name,
				Label:   f.Label,
				Type:    domain.FieldType(f.Type),
				Options: f.Options,
			}
		}

		var estimate time.Duration
		if rt.EstimatedProcessTime != "" {
			var err error
			estimate, err = time.ParseDuration(rt.EstimatedProcessTime)
			if err != nil {
				return fmt.Errorf("request type %q has a bad estimated_process_time: %w", rt.Title, err)
			}
		}

		if err := st.CreateRequestType(ctx, &domain.RequestType{
			ID:                   uuid.New(),
			Title:                rt.Title,
			Category:             rt.Category,
			Workflow:             workflow,
			RequiredFields:       fields,
			AttachmentsRequired:  rt.AttachmentsRequired,
			AttachmentKinds:      rt.AttachmentKinds,
			EstimatedProcessTime: estimate,
			IsActive:             true,
		}); err != nil {
			return fmt.Errorf("failed to create request type %s: %w", rt.Title, err)
		}
		fmt.Printf("created request type: %s\n", rt.Title)
	}

	now := time.Now()
	for _, r := range data.Resources {
		if err := st.CreateResource(ctx, &domain.Resource{
			ID:        uuid.New(),
			Name:      r.Name,
			Category:  r.Category,
			Capacity:  r.Capacity,
			Location:  r.Location,
			Status:    domain.ResourceAvailable,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to create resource %s: %w", r.Name, err)
		}
		fmt.Printf("created resource: %s\n", r.Name)
	}

	fmt.Println("seeding completed")
	return nil
}

func nukeDatabase() error {
	cfg := config.Load()

	// Open database connection for goose
	sqlDB, err := goose.OpenDBWithDriver("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			fmt.Printf("warning: failed to close database: %v\n", err)
		}
	}()

	fmt.Println("resetting database with goose...")

	fmt.Println("rolling back all migrations...")
	if err := goose.Reset(sqlDB, "db/migrations"); err != nil {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}

	fmt.Println("applying all migrations...")
	if err := goose.Up(sqlDB, "db/migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	fmt.Println("database reset complete - ready for seeding")
	return nil
}

func confirmNuke() bool {
	fmt.Print("warning: this will delete all data from the database. are you sure? (yes/no): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}

	return strings.ToLower(strings.TrimSpace(response)) == "yes"
}

func printUsage() {
	fmt.Println("Seeder Tool - Database seeding utility for Campus Desk")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  seeder <command> [flags]")
	fmt.Println()
	fmt.Println("COMMANDS:")
	fmt.Println("  seed        Seed database from YAML files")
	fmt.Println("  nuke        Delete all data from database")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("SEED FLAGS:")
	fmt.Println("  --file      Path to a single YAML file")
	fmt.Println("  --dir       Path to directory containing YAML files")
	fmt.Println("  --dry-run   Validate files without making database changes")
	fmt.Println()
	fmt.Println("NUKE FLAGS:")
	fmt.Println("  --force     Skip confirmation prompt")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  seeder seed --file dev-data.yaml")
	fmt.Println("  seeder seed --dir ./seed-data/")
	fmt.Println("  seeder seed --dir ./seed-data/ --dry-run")
	fmt.Println("  seeder nuke")
	fmt.Println("  seeder nuke --force")
}
