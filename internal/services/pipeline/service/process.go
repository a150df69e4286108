package service

import (
	"context"

	"warden/internal/core/message"
	"warden/internal/modkit/repokit"
	perr "warden/internal/platform/errors"
	"warden/internal/platform/metrics"
	"warden/internal/platform/store"
	featdom "warden/internal/services/features/domain"
	"warden/internal/services/pipeline/domain"
	profdom "warden/internal/services/profiles/domain"
)

// process fans one batch through every registered profile. Profiles are
// independent: one profile's repository trouble requeues the batch for
// that profile only
func (s *Service) process(ctx context.Context, batch []item) {
	for i := range s.Profiles {
		sp := s.Profiles[i]
		name := sp.Profile.Name()

		items := batch
		if carried := s.pending[name]; len(carried) > 0 {
			items = append(carried, batch...)
			delete(s.pending, name)
		}

		err := store.Retry(ctx, s.Cfg.Retry, func(ctx context.Context) error {
			return s.processProfile(ctx, sp, items)
		})
		if err != nil {
			s.errors.Add(1)
			// requeue wholesale; upserts make redelivery idempotent
			s.pending[name] = items
			s.Log.Error().Err(err).Str("profile", name).Int("size", len(items)).
				Msg("profile batch failed, requeued")
		}
	}
}

// processProfile runs the match -> actor -> features -> events stages for
// one profile over one batch
func (s *Service) processProfile(ctx context.Context, sp profdom.Synced, items []item) error {
	type matched struct {
		it    item
		actor string
	}

	accepted := make([]matched, 0, len(items))
	for _, it := range items {
		if !sp.Profile.Matches(it.msg) {
			continue
		}
		raw, err := sp.Profile.Actor(it.msg)
		if err == nil {
			if name := s.norm.Normalize(raw); name != "" {
				accepted = append(accepted, matched{it: it, actor: name})
				continue
			}
			err = perr.Extractionf("actor name empty after normalization")
		}
		// extraction errors skip the message for this profile only
		s.skipped.Add(1)
		metrics.MessagesProcessed.WithLabelValues("skipped").Inc()
		s.Log.Warn().Err(err).Str("profile", sp.Profile.Name()).
			Stringer("message_id", it.msg.ID()).Msg("message skipped")
	}
	if len(accepted) == 0 {
		return nil
	}

	names := make([]string, 0, len(accepted))
	seen := make(map[string]struct{}, len(accepted))
	msgRows := make([]domain.MessageWrite, 0, len(accepted))
	msgSeen := make(map[string]struct{}, len(accepted))
	for _, m := range accepted {
		if _, ok := seen[m.actor]; !ok {
			seen[m.actor] = struct{}{}
			names = append(names, m.actor)
		}
		id := m.it.msg.ID().String()
		if _, ok := msgSeen[id]; ok {
			continue
		}
		msgSeen[id] = struct{}{}
		payload, err := message.Canonical(m.it.msg.Payload())
		if err != nil {
			return err
		}
		msgRows = append(msgRows, domain.MessageWrite{
			ID:         m.it.msg.ID(),
			Transport:  m.it.transport,
			Payload:    payload,
			ReceivedAt: m.it.msg.ReceivedAt(),
		})
	}

	var actorIDs map[string]int64
	err := s.Tx.Tx(ctx, func(q repokit.Queryer) error {
		st := s.Binder.Bind(q)
		var err error
		if actorIDs, err = st.UpsertActors(ctx, sp.ProfileID, names); err != nil {
			return err
		}
		return st.UpsertMessages(ctx, msgRows)
	})
	if err != nil {
		return err
	}

	// one observation per declared field per accepted message; absent
	// fields are recorded as null observations so optional reporters can
	// see absence history, but they are not scored into anomalies
	fields := sp.Profile.Fields()
	type ref struct {
		msgIdx   int
		fieldID  int64
		present  bool
		reporter string
	}
	obs := make([]featdom.Observation, 0, len(accepted)*len(fields))
	refs := make([]ref, 0, cap(obs))
	for mi, m := range accepted {
		for _, f := range fields {
			fieldID, ok := sp.FieldID(f.Name)
			if !ok {
				return perr.Configf("field %q not synced for profile %q", f.Name, sp.Profile.Name())
			}
			var vp *string
			v, present := f.Extract(m.it.msg)
			if present {
				vp = &v
			}
			obs = append(obs, featdom.Observation{
				ActorID:  actorIDs[m.actor],
				FieldID:  fieldID,
				Value:    vp,
				Reporter: f.Reporter,
				Weight:   f.Weight,
			})
			refs = append(refs, ref{msgIdx: mi, fieldID: fieldID, present: present, reporter: f.Reporter})
		}
	}

	scores, err := s.Recorder.RecordBatch(ctx, obs)
	if err != nil {
		return err
	}

	events := make([]domain.EventWrite, len(accepted))
	for mi, m := range accepted {
		events[mi] = domain.EventWrite{
			MessageID: m.it.msg.ID(),
			ActorID:   actorIDs[m.actor],
			ProfileID: sp.ProfileID,
			CreatedAt: m.it.msg.ReceivedAt(),
		}
	}
	for i, sc := range scores {
		r := refs[i]
		if !r.present {
			continue
		}
		events[r.msgIdx].Anomalies = append(events[r.msgIdx].Anomalies, domain.AnomalyWrite{
			FieldID:   r.fieldID,
			FeatureID: sc.FeatureID,
			Score:     sc.Score,
		})
		metrics.ScoreDistribution.WithLabelValues(sp.Profile.Name(), r.reporter).Observe(sc.Score)
	}

	if err := s.Tx.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).InsertEvents(ctx, events)
	}); err != nil {
		return err
	}

	s.processed.Add(int64(len(accepted)))
	s.events.Add(int64(len(events)))
	metrics.MessagesProcessed.WithLabelValues("ok").Add(float64(len(accepted)))
	metrics.EventsRecorded.WithLabelValues(sp.Profile.Name()).Add(float64(len(events)))
	return nil
}
