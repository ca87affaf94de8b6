package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"

	"taskboard/models"
)

const (
	activityCollection = "activity"
	// O Firestore aceita até 500 operações por batch.
	deleteBatchSize = 500
)

// ActivityLog grava o histórico de alterações no Firestore, em
// workspaces/{id}/activity ou users/{uid}/activity para o escopo pessoal.
type ActivityLog struct {
	client *firestore.Client
}

func NewActivityLog(ctx context.Context, app *firebase.App) (*ActivityLog, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("erro ao obter cliente do Firestore: %w", err)
	}
	return &ActivityLog{client: client}, nil
}

func (l *ActivityLog) scope(uid, workspaceID string) *firestore.CollectionRef {
	if workspaceID != "" {
		return l.client.Collection("workspaces").Doc(workspaceID).Collection(activityCollection)
	}
	return l.client.Collection("users").Doc(uid).Collection(activityCollection)
}

// Record adiciona uma entrada ao histórico do escopo.
func (l *ActivityLog) Record(ctx context.Context, a models.Activity) error {
	if _, _, err := l.scope(a.ActorID, a.WorkspaceID).Add(ctx, a); err != nil {
		return fmt.Errorf("erro ao gravar atividade: %w", err)
	}
	return nil
}

// Recent devolve as entradas mais recentes do escopo.
func (l *ActivityLog) Recent(ctx context.Context, uid, workspaceID string, limit int) ([]models.Activity, error) {
	iter := l.scope(uid, workspaceID).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	entries := []models.Activity{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("erro ao ler atividades: %w", err)
		}
		var a models.Activity
		if err := doc.DataTo(&a); err != nil {
			return nil, fmt.Errorf("atividade %s inválida: %w", doc.Ref.ID, err)
		}
		a.ID = doc.Ref.ID
		entries = append(entries, a)
	}
	return entries, nil
}

// PurgeWorkspace apaga o histórico de um workspace deletado e o documento dele.
// O Firestore não remove subcoleções junto com o documento pai.
func (l *ActivityLog) PurgeWorkspace(ctx context.Context, workspaceID string) error {
	workspaceRef := l.client.Collection("workspaces").Doc(workspaceID)
	activityRef := workspaceRef.Collection(activityCollection)

	for {
		iter := activityRef.Limit(deleteBatchSize).Documents(ctx)
		batch := l.client.Batch()
		numDeleted := 0
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return fmt.Errorf("erro ao iterar atividades do workspace %s: %w", workspaceID, err)
			}
			batch.Delete(doc.Ref)
			numDeleted++
		}
		iter.Stop()

		if numDeleted == 0 {
			break
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("erro ao deletar batch de atividades do workspace %s: %w", workspaceID, err)
		}
	}

	if _, err := workspaceRef.Delete(ctx); err != nil {
		return fmt.Errorf("erro ao deletar documento do workspace %s do Firestore: %w", workspaceID, err)
	}
	return nil
}

func (l *ActivityLog) Close() error {
	return l.client.Close()
}

// NoopActivityLog é usado quando o Firestore não está habilitado.
type NoopActivityLog struct{}

func (NoopActivityLog) Record(ctx context.Context, a models.Activity) error { return nil }

func (NoopActivityLog) Recent(ctx context.Context, uid, workspaceID string, limit int) ([]models.Activity, error) {
	return []models.Activity{}, nil
}

func (NoopActivityLog) PurgeWorkspace(ctx context.Context, workspaceID string) error { return nil }

func (NoopActivityLog) Close() error { return nil }
