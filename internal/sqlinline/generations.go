package sqlinline

const QInsertGenerationJob = `--sql 515f3ef1-f7c6-4a26-9a07-1e87dfb9ebbf
insert into generation_jobs(
  handle,
  provider_job_id,
  provider_id,
  media_type,
  state,
  progress_percent,
  composition_mode,
  source_count,
  duration_seconds,
  user_key,
  submitted_at,
  updated_at
) values (
  $1::text,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::int,
  $7::text,
  $8::int,
  $9::int,
  nullif($10::text, ''),
  $11::timestamptz,
  now()
);
`

const QUpdateGenerationJobState = `--sql 0e693c6e-0b76-4e67-916f-c6842ed9a59d
update generation_jobs
set state = $2::text,
    progress_percent = greatest(progress_percent, $3::int),
    error_code = nullif($4::text, ''),
    error_message = nullif($5::text, ''),
    artifact_ref = coalesce(nullif($6::text, ''), artifact_ref),
    updated_at = now()
where handle = $1::text;
`

const QSelectGenerationJob = `--sql 5a279b4a-541e-4811-95b7-46ff81fc910a
select
  handle,
  provider_job_id,
  provider_id,
  media_type,
  state,
  progress_percent,
  composition_mode,
  source_count,
  duration_seconds,
  coalesce(error_code, ''),
  coalesce(artifact_ref, ''),
  submitted_at
from generation_jobs
where handle = $1::text
limit 1;
`

const QCountGenerationJobsByState = `--sql ddd0d854-ea69-44b9-b454-801716eb1ca0
select state, count(*)
from generation_jobs
where submitted_at >= $1::timestamptz
group by state
order by state;
`
