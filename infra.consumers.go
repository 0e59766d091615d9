package main

import (
	"context"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

type archiveConsumer struct {
	logger  *zap.Logger
	queue   Queuer
	archive LoanArchiver
}

func NewArchiveConsumer(logger *zap.Logger, q Queuer, archive LoanArchiver) Consumer {
	return &archiveConsumer{logger, q, archive}
}

func (ac *archiveConsumer) Consume(ctx context.Context, qids ...string) error {
	var event LoanEvent
	var err error
	var qid string
	for {
		qid, event, err = ac.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			ac.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			ac.logger.Error("consumer: error on queue pop call", zap.Error(err))
			continue
		}

		switch qid {
		case BorrowQueue, ReturnQueue:
			if err = ac.archive.Archive(ctx, event); err != nil {
				ac.logger.Error("consumer: failed to archive", zap.Any("event", event), zap.Error(err))
			}
		default:
			ac.logger.Warn("consumer: received event on unknow queue id", zap.String("qid", qid), zap.Any("event", event))
		}
	}
}
