package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
	"github.com/mimir-aip/microfinance-go/pkg/platform"
)

var demoSeed int64

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Score a sample applicant and recommend loans without starting the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		seed := demoSeed
		if seed == 0 {
			seed = cfg.RandomSeed
		}
		svc, err := platform.NewService(cfg.Models, numeric.NewRand(seed))
		if err != nil {
			return err
		}
		return runDemo(cmd, svc)
	},
}

func init() {
	demoCmd.Flags().Int64Var(&demoSeed, "seed", 0, "random seed (overrides RANDOM_SEED)")
}

func runDemo(cmd *cobra.Command, svc *platform.Service) error {
	out := cmd.OutOrStdout()

	assessment, err := svc.AssessCreditworthiness(&models.CreditAssessmentRequest{Data: []float64{1, 2, 3, 4, 5}})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Credit Score: %.4f\n", assessment.FinalScore)

	_, err = svc.TrainModels(&models.TrainRequest{TrainingData: &models.TrainingData{
		Ratings: []models.RatingInput{
			{User: 0, Item: 1, Rating: 5},
			{User: 0, Item: 2, Rating: 3},
			{User: 1, Item: 0, Rating: 4},
		},
	}})
	if err != nil {
		return err
	}

	user := 0
	loans, err := svc.RecommendLoans(&models.LoanRequest{UserID: &user, Score: assessment.FinalScore, Risk: 0.2})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loan Recommendations: %v\n", loans.Recommendations)
	fmt.Fprintf(out, "Suggested Terms: amount %s at rate %.4f\n", loans.Terms.AmountDisplay, loans.Terms.Rate)
	return nil
}
