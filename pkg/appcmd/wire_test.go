package appcmd

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func buildSearchCommand(t *testing.T) *SlashCommand {
	t.Helper()
	query := mustOption(t, discordgo.ApplicationCommandOptionString, "query", "What to search for", Required())
	limit := mustOption(t, discordgo.ApplicationCommandOptionInteger, "limit", "Result cap", WithBounds(1, 50))
	cmd, err := NewSlashCommand("search", "Search the archive", WithOptions(query, limit))
	if err != nil {
		t.Fatalf("NewSlashCommand: %v", err)
	}
	return cmd
}

func TestEqualsRemoteReflexive(t *testing.T) {
	t.Parallel()

	cmd := buildSearchCommand(t)
	if !cmd.EqualsRemote(cmd.Definition()) {
		t.Fatal("command does not equal its own definition")
	}
}

func TestEqualsRemoteToleratesOmittedDefaults(t *testing.T) {
	t.Parallel()

	cmd := buildSearchCommand(t)
	remote := cmd.Definition()

	// the remote omits required=false, dm_permission (defaults true) and
	// nsfw (defaults false)
	remote.Options[1].Required = false
	remote.DMPermission = nil
	remote.NSFW = nil

	if !cmd.EqualsRemote(remote) {
		t.Fatal("omitted remote defaults should not count as drift")
	}
}

func TestEqualsRemoteDetectsChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*discordgo.ApplicationCommand)
	}{
		{"description change", func(d *discordgo.ApplicationCommand) { d.Description = "Something else" }},
		{"option added", func(d *discordgo.ApplicationCommand) {
			d.Options = append(d.Options, &discordgo.ApplicationCommandOption{
				Type: discordgo.ApplicationCommandOptionBoolean, Name: "extra", Description: "x",
			})
		}},
		{"option description change", func(d *discordgo.ApplicationCommand) { d.Options[0].Description = "changed" }},
		{"required flipped on", func(d *discordgo.ApplicationCommand) { d.Options[1].Required = true }},
		{"bound change", func(d *discordgo.ApplicationCommand) { d.Options[1].MaxValue = 99 }},
		{"scalar options reordered", func(d *discordgo.ApplicationCommand) {
			d.Options[0], d.Options[1] = d.Options[1], d.Options[0]
		}},
		{"permissions change", func(d *discordgo.ApplicationCommand) {
			perms := int64(discordgo.PermissionAdministrator)
			d.DefaultMemberPermissions = &perms
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := buildSearchCommand(t)
			remote := cmd.Definition()
			tt.mutate(remote)
			if cmd.EqualsRemote(remote) {
				t.Fatal("mutation not detected as drift")
			}
		})
	}
}

func TestEqualsRemoteContainerChildrenMatchByName(t *testing.T) {
	t.Parallel()

	cmd, err := NewSlashCommand("admin", "Administrative tools")
	if err != nil {
		t.Fatalf("NewSlashCommand: %v", err)
	}
	if _, err := cmd.AddSubcommand("ban", "Ban a member",
		mustOption(t, discordgo.ApplicationCommandOptionUser, "target", "Who", Required())); err != nil {
		t.Fatalf("AddSubcommand: %v", err)
	}
	if _, err := cmd.AddSubcommand("unban", "Unban a member",
		mustOption(t, discordgo.ApplicationCommandOptionString, "user_id", "Who", Required())); err != nil {
		t.Fatalf("AddSubcommand: %v", err)
	}

	remote := cmd.Definition()
	// the remote may hand container children back in any order
	remote.Options[0], remote.Options[1] = remote.Options[1], remote.Options[0]
	if !cmd.EqualsRemote(remote) {
		t.Fatal("reordered sub-commands should not count as drift")
	}

	// but a changed child, found by name, still counts
	remote = cmd.Definition()
	remote.Options[1].Options[0].Description = "changed"
	if cmd.EqualsRemote(remote) {
		t.Fatal("nested option change not detected")
	}
}

func TestEqualsRemoteChoiceValuesAcrossJSONBoundary(t *testing.T) {
	t.Parallel()

	easy, err := NewChoice("easy", 1)
	if err != nil {
		t.Fatalf("NewChoice: %v", err)
	}
	diff := mustOption(t, discordgo.ApplicationCommandOptionInteger, "difficulty", "How hard", WithChoices(easy))
	cmd, err := NewSlashCommand("play", "Start a game", WithOptions(diff))
	if err != nil {
		t.Fatalf("NewSlashCommand: %v", err)
	}

	remote := cmd.Definition()
	// remote JSON decodes integer choice values as float64
	remote.Options[0].Choices[0].Value = float64(1)
	if !cmd.EqualsRemote(remote) {
		t.Fatal("numeric choice value changed representation across the wire, should still match")
	}
}

func TestContextCommandEqualsRemote(t *testing.T) {
	t.Parallel()

	uc, err := NewUserCommand("Show Avatar")
	if err != nil {
		t.Fatalf("NewUserCommand: %v", err)
	}
	if !uc.EqualsRemote(uc.Definition()) {
		t.Fatal("user command does not equal its own definition")
	}

	remote := uc.Definition()
	remote.Name = "Other"
	if uc.EqualsRemote(remote) {
		t.Fatal("renamed remote should not match")
	}
}
