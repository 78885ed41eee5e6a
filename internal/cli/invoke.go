package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjregee/copilot/internal/service"
	"github.com/zjregee/copilot/internal/service/skills"
)

var (
	invokeSkill  string
	invokeQuery  string
	invokeImages []string
	invokeConfig string
	invokeModel  string
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Run one skill turn on a fresh conversation",
	Long: `Creates a conversation, runs a single skill invocation and prints the
answer.

Example:
  copilot invoke --skill customPrompt --query "Summarise Go generics" \
    --config '{"customSystemPrompt":{"value":"Answer in one sentence."}}'`,
	Args: cobra.NoArgs,
	RunE: runInvoke,
}

func init() {
	invokeCmd.Flags().StringVar(&invokeSkill, "skill", "", "skill name (defaults to customPrompt)")
	invokeCmd.Flags().StringVarP(&invokeQuery, "query", "q", "", "user query")
	invokeCmd.Flags().StringSliceVar(&invokeImages, "image", nil, "image URL, repeatable")
	invokeCmd.Flags().StringVar(&invokeConfig, "config", "", "skill config as JSON")
	invokeCmd.Flags().StringVar(&invokeModel, "model", "", "model id (defaults to the configured default)")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(invokeQuery) == "" && len(invokeImages) == 0 {
		return fmt.Errorf("--query or --image is required")
	}

	tpl, err := skills.ParseTplConfig([]byte(invokeConfig))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	info, err := rt.threads.CreateThread(ctx)
	if err != nil {
		return err
	}
	if invokeModel != "" {
		if err := rt.threads.UpdateThreadModel(ctx, info.ID, invokeModel); err != nil {
			return err
		}
	}

	result, err := rt.threads.InvokeSkill(ctx, info.ID, service.InvokeRequest{
		SkillName: invokeSkill,
		Query:     invokeQuery,
		Images:    invokeImages,
		TplConfig: tpl,
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Message.Content)
	return err
}
